package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/mailer"
	"restostock/backend/internal/store"
)

func (s *Service) ListRecipients(ctx context.Context, enabledOnly bool) ([]domain.Recipient, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListRecipients(ctx, enabledOnly)
}

func (s *Service) AddRecipient(ctx context.Context, email string) (*domain.Recipient, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", store.ErrInvalidInput)
	}

	return s.repo.AddRecipient(ctx, email)
}

func (s *Service) UpdateRecipient(ctx context.Context, id int64, update domain.RecipientUpdate) (*domain.Recipient, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if id < 1 {
		return nil, fmt.Errorf("%w: invalid recipient id", store.ErrInvalidInput)
	}
	if update.Enabled == nil && update.AutoAlerts == nil && update.ManualReports == nil {
		return nil, fmt.Errorf("%w: no settings to update", store.ErrInvalidInput)
	}
	return s.repo.UpdateRecipientSettings(ctx, id, update)
}

func (s *Service) AlertHistory(ctx context.Context, limit int) ([]domain.AlertLog, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListAlertLogs(ctx, limit)
}

// SendManualReport mails a sales report for the requested window to every
// enabled recipient opted into manual reports. Per-recipient delivery failures
// are collected, not fatal: the remaining recipients still get their mail.
func (s *Service) SendManualReport(ctx context.Context, reportType, startStr, endStr string) (int, []string, error) {
	if err := s.requireRole(ctx, domain.RoleAdmin); err != nil {
		return 0, nil, err
	}

	start, end, err := ResolveReportWindow(reportType, startStr, endStr, time.Now())
	if err != nil {
		return 0, nil, err
	}

	recipients, err := s.repo.ListRecipientsByKind(ctx, store.RecipientKindManual)
	if err != nil {
		return 0, nil, err
	}
	if len(recipients) == 0 {
		return 0, nil, fmt.Errorf("%w: no enabled report recipients", store.ErrInvalidInput)
	}

	report, err := s.repo.SalesReport(ctx, start, end)
	if err != nil {
		return 0, nil, err
	}

	subject, body, err := mailer.RenderSalesReport("Sales Report", report, start, end)
	if err != nil {
		return 0, nil, err
	}

	sent := 0
	var failures []string
	for _, recipient := range recipients {
		if err := s.mail.Send(ctx, recipient.Email, subject, body); err != nil {
			failures = append(failures, recipient.Email)
			s.logger.WithField("email", recipient.Email).WithError(err).Warn("manual report delivery failed")
			continue
		}
		sent++

		logErr := s.repo.LogAlert(ctx, domain.AlertLog{
			Type:        domain.AlertTypeManual,
			RecipientID: recipient.ID,
			Summary:     fmt.Sprintf("manual report %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
		})
		if logErr != nil {
			s.logger.WithError(logErr).Warn("alert log write failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sent":   sent,
		"failed": len(failures),
	}).Info("manual report dispatched")

	return sent, failures, nil
}
