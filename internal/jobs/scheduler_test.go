package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store/memory"
)

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) all() []capturedMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedMail(nil), f.sent...)
}

// onceLocker grants each key exactly once, like the redis day lock does.
type onceLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *onceLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func TestLowStockCheckMailsOptedInRecipients(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	chef, err := repo.AddRecipient(ctx, "chef@example.com")
	require.NoError(t, err)
	optedOut, err := repo.AddRecipient(ctx, "reports-only@example.com")
	require.NoError(t, err)
	off := false
	_, err = repo.UpdateRecipientSettings(ctx, optedOut.ID, domain.RecipientUpdate{AutoAlerts: &off})
	require.NoError(t, err)

	// Push Onion under its reorder level.
	low := decimal.NewFromInt(3)
	_, err = repo.UpdateProduct(ctx, 4, domain.ProductUpdate{Quantity: &low})
	require.NoError(t, err)

	mail := &fakeMailer{}
	sched := NewScheduler(repo, mail, &onceLocker{}, nil, time.Hour, 20)

	require.NoError(t, sched.RunLowStockCheck(ctx))

	sent := mail.all()
	require.Len(t, sent, 1)
	require.Equal(t, "chef@example.com", sent[0].To)
	require.Contains(t, sent[0].Subject, "Low stock")
	require.Contains(t, sent[0].Body, "Onion")

	logs, err := repo.ListAlertLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, domain.AlertTypeLowStock, logs[0].Type)
	require.Equal(t, chef.ID, logs[0].RecipientID)
	require.NotNil(t, logs[0].ProductID)
	require.Equal(t, int64(4), *logs[0].ProductID)
}

func TestLowStockCheckRunsOncePerDay(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	_, err := repo.AddRecipient(ctx, "chef@example.com")
	require.NoError(t, err)
	low := decimal.NewFromInt(1)
	_, err = repo.UpdateProduct(ctx, 4, domain.ProductUpdate{Quantity: &low})
	require.NoError(t, err)

	mail := &fakeMailer{}
	sched := NewScheduler(repo, mail, &onceLocker{}, nil, time.Hour, 20)

	require.NoError(t, sched.RunLowStockCheck(ctx))
	require.NoError(t, sched.RunLowStockCheck(ctx))
	require.NoError(t, sched.RunLowStockCheck(ctx))

	require.Len(t, mail.all(), 1, "repeat checks inside one day stay silent")
}

func TestLowStockCheckSilentWhenNothingIsLow(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()
	_, err := repo.AddRecipient(ctx, "chef@example.com")
	require.NoError(t, err)

	mail := &fakeMailer{}
	sched := NewScheduler(repo, mail, &onceLocker{}, nil, time.Hour, 20)

	require.NoError(t, sched.RunLowStockCheck(ctx))
	require.Empty(t, mail.all())
}

// Without redis the scheduler still must not re-send within a day.
func TestDailyReportOncePerDayWithNoopLocker(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	_, err := repo.AddRecipient(ctx, "owner@example.com")
	require.NoError(t, err)

	mail := &fakeMailer{}
	sched := NewScheduler(repo, mail, NoopLocker{}, nil, time.Hour, 20)

	now := time.Now().UTC()
	require.NoError(t, sched.RunDailyReport(ctx, now))
	require.NoError(t, sched.RunDailyReport(ctx, now))
	require.NoError(t, sched.RunDailyReport(ctx, now))

	require.Len(t, mail.all(), 1, "same-day reruns stay silent without a locker")

	// A new day goes through again.
	require.NoError(t, sched.RunDailyReport(ctx, now.Add(24*time.Hour)))
	require.Len(t, mail.all(), 2)
}

func TestLowStockCheckOncePerDayWithNoopLocker(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	_, err := repo.AddRecipient(ctx, "chef@example.com")
	require.NoError(t, err)
	low := decimal.NewFromInt(1)
	_, err = repo.UpdateProduct(ctx, 4, domain.ProductUpdate{Quantity: &low})
	require.NoError(t, err)

	mail := &fakeMailer{}
	sched := NewScheduler(repo, mail, NoopLocker{}, nil, time.Hour, 20)

	require.NoError(t, sched.RunLowStockCheck(ctx))
	require.NoError(t, sched.RunLowStockCheck(ctx))

	require.Len(t, mail.all(), 1)
}

func TestDailyReportMailsSummary(t *testing.T) {
	repo := memory.NewSeeded()
	ctx := context.Background()

	_, err := repo.AddRecipient(ctx, "owner@example.com")
	require.NoError(t, err)

	_, err = repo.RecordSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemInput{{ProductID: 1, Quantity: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	mail := &fakeMailer{}
	sched := NewScheduler(repo, mail, &onceLocker{}, nil, time.Hour, 20)

	now := time.Now().UTC()
	require.NoError(t, sched.RunDailyReport(ctx, now))
	require.NoError(t, sched.RunDailyReport(ctx, now))

	sent := mail.all()
	require.Len(t, sent, 1, "day lock deduplicates")
	require.Contains(t, sent[0].Subject, "Daily Sales Report")
	require.Contains(t, sent[0].Body, "500")

	logs, err := repo.ListAlertLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, domain.AlertTypeDailyReport, logs[0].Type)
}
