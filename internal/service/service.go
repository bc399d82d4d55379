package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/mailer"
	"restostock/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	mail     mailer.Sender
	logger   *logrus.Logger
	validate *validator.Validate
}

func New(repo store.Repository, mail mailer.Sender, logger *logrus.Logger) *Service {
	if mail == nil {
		mail = mailer.Noop{}
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Service{
		repo:     repo,
		mail:     mail,
		logger:   logger,
		validate: validator.New(),
	}
}

func (s *Service) requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("authentication required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%s role required", strings.Join(roles, " or "))
}

// AddProduct validates and hands the upsert to the store. The store decides
// merge-vs-insert; the second return value reports whether a new row was made.
func (s *Service) AddProduct(ctx context.Context, req domain.ProductUpsert) (*domain.Product, bool, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, false, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Unit = strings.TrimSpace(req.Unit)

	if err := s.validate.Struct(req); err != nil {
		return nil, false, fmt.Errorf("%w: %s", store.ErrInvalidInput, validationDetail(err))
	}
	if req.Quantity.IsNegative() {
		return nil, false, fmt.Errorf("%w: quantity must not be negative", store.ErrInvalidInput)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, false, fmt.Errorf("%w: price must not be negative", store.ErrInvalidInput)
	}

	product, created, err := s.repo.UpsertProduct(ctx, req)
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
		"created":    created,
	}).Info("product upserted")

	return product, created, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id < 1 {
		return nil, fmt.Errorf("%w: invalid product id", store.ErrInvalidInput)
	}
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", store.ErrInvalidInput)
	}
	return s.repo.FindProductByName(ctx, name)
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if id < 1 {
		return nil, fmt.Errorf("%w: invalid product id", store.ErrInvalidInput)
	}
	if update.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", store.ErrInvalidInput)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if len(name) < 2 || len(name) > 255 {
			return nil, fmt.Errorf("%w: name must be 2-255 characters", store.ErrInvalidInput)
		}
		update.Name = &name
	}
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" || len(category) > 100 {
			return nil, fmt.Errorf("%w: category must be 1-100 characters", store.ErrInvalidInput)
		}
		update.Category = &category
	}
	if update.Unit != nil {
		unit := strings.TrimSpace(*update.Unit)
		if unit == "" || len(unit) > 50 {
			return nil, fmt.Errorf("%w: unit must be 1-50 characters", store.ErrInvalidInput)
		}
		update.Unit = &unit
	}
	if update.Quantity != nil && update.Quantity.IsNegative() {
		return nil, fmt.Errorf("%w: quantity must not be negative", store.ErrInvalidInput)
	}
	if update.Price != nil && update.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", store.ErrInvalidInput)
	}
	if update.ReorderLevel != nil && *update.ReorderLevel < 0 {
		return nil, fmt.Errorf("%w: reorder level must not be negative", store.ErrInvalidInput)
	}

	return s.repo.UpdateProduct(ctx, id, update)
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.FindLowStock(ctx)
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
