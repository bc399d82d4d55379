// Package jobs runs the scheduled background work: periodic low-stock checks
// and the end-of-day report mail.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/mailer"
	"restostock/backend/internal/store"
	"restostock/backend/internal/xid"
)

type Scheduler struct {
	repo   store.Repository
	mail   mailer.Sender
	locker Locker
	logger *logrus.Logger

	checkEvery time.Duration
	reportHour int

	// Last day each job ran, keyed by job name. Dedupes within this process
	// even when the locker is a NoopLocker; the redis lock still dedupes
	// across replicas.
	mu      sync.Mutex
	lastRun map[string]string
}

func NewScheduler(repo store.Repository, mail mailer.Sender, locker Locker, logger *logrus.Logger, checkEvery time.Duration, reportHour int) *Scheduler {
	if locker == nil {
		locker = NoopLocker{}
	}
	if mail == nil {
		mail = mailer.Noop{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	if checkEvery < time.Minute {
		checkEvery = time.Hour
	}

	return &Scheduler{
		repo:       repo,
		mail:       mail,
		locker:     locker,
		logger:     logger,
		checkEvery: checkEvery,
		reportHour: reportHour,
		lastRun:    make(map[string]string),
	}
}

func (s *Scheduler) ranOn(job, day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[job] == day
}

func (s *Scheduler) markRan(job, day string) {
	s.mu.Lock()
	s.lastRun[job] = day
	s.mu.Unlock()
}

// Start launches the tickers. Both loops stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.lowStockLoop(ctx)
	go s.dailyReportLoop(ctx)
}

func (s *Scheduler) lowStockLoop(ctx context.Context) {
	ticker := time.NewTicker(s.checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunLowStockCheck(ctx); err != nil {
				s.logger.WithError(err).Error("low stock check failed")
			}
		}
	}
}

func (s *Scheduler) dailyReportLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.UTC().Hour() < s.reportHour {
				continue
			}
			if err := s.RunDailyReport(ctx, now.UTC()); err != nil {
				s.logger.WithError(err).Error("daily report failed")
			}
		}
	}
}

// RunLowStockCheck mails every opted-in recipient when any product sits at or
// below its reorder level. The redis day lock keeps the alert to one mail per
// recipient per day regardless of how often the check runs or how many
// replicas run it.
func (s *Scheduler) RunLowStockCheck(ctx context.Context) error {
	low, err := s.repo.FindLowStock(ctx)
	if err != nil {
		return err
	}
	if len(low) == 0 {
		return nil
	}

	today := time.Now().UTC().Format("2006-01-02")
	if s.ranOn("lowstock", today) {
		return nil
	}
	won, err := s.locker.Acquire(ctx, "lowstock:"+today, 26*time.Hour)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	s.markRan("lowstock", today)

	recipients, err := s.repo.ListRecipientsByKind(ctx, store.RecipientKindAuto)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		s.logger.Warn("low stock detected but no alert recipients configured")
		return nil
	}

	subject, body, err := mailer.RenderLowStockAlert(low, time.Now())
	if err != nil {
		return err
	}

	run := xid.New("job")
	sent := 0
	for _, recipient := range recipients {
		if err := s.mail.Send(ctx, recipient.Email, subject, body); err != nil {
			s.logger.WithFields(logrus.Fields{
				"run":   run,
				"email": recipient.Email,
			}).WithError(err).Warn("low stock alert delivery failed")
			continue
		}
		sent++

		for _, product := range low {
			productID := product.ID
			logErr := s.repo.LogAlert(ctx, domain.AlertLog{
				Type:        domain.AlertTypeLowStock,
				RecipientID: recipient.ID,
				ProductID:   &productID,
				Summary:     fmt.Sprintf("%s at %s %s (reorder level %d)", product.Name, product.Quantity.String(), product.Unit, product.ReorderLevel),
			})
			if logErr != nil {
				s.logger.WithError(logErr).Warn("alert log write failed")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"run":      run,
		"products": len(low),
		"sent":     sent,
	}).Info("low stock alert dispatched")

	return nil
}

// RunDailyReport mails today's sales summary to report subscribers, once per
// day per deployment.
func (s *Scheduler) RunDailyReport(ctx context.Context, now time.Time) error {
	day := now.Format("2006-01-02")
	if s.ranOn("dailyreport", day) {
		return nil
	}
	won, err := s.locker.Acquire(ctx, "dailyreport:"+day, 26*time.Hour)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	s.markRan("dailyreport", day)

	recipients, err := s.repo.ListRecipientsByKind(ctx, store.RecipientKindManual)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	today := now.Truncate(24 * time.Hour)
	report, err := s.repo.SalesReport(ctx, today, today)
	if err != nil {
		return err
	}

	subject, body, err := mailer.RenderSalesReport("Daily Sales Report", report, today, today)
	if err != nil {
		return err
	}

	run := xid.New("job")
	sent := 0
	for _, recipient := range recipients {
		if err := s.mail.Send(ctx, recipient.Email, subject, body); err != nil {
			s.logger.WithFields(logrus.Fields{
				"run":   run,
				"email": recipient.Email,
			}).WithError(err).Warn("daily report delivery failed")
			continue
		}
		sent++

		logErr := s.repo.LogAlert(ctx, domain.AlertLog{
			Type:        domain.AlertTypeDailyReport,
			RecipientID: recipient.ID,
			Summary:     "daily report " + day,
		})
		if logErr != nil {
			s.logger.WithError(logErr).Warn("alert log write failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"run":  run,
		"day":  day,
		"sent": sent,
	}).Info("daily report dispatched")

	return nil
}
