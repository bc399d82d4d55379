package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
	"restostock/backend/internal/store/memory"
)

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

type capturingMailer struct {
	failFor string
	sent    []capturedMail
}

func (m *capturingMailer) Send(_ context.Context, to, subject, body string) error {
	if m.failFor != "" && to == m.failFor {
		return errors.New("smtp connection refused")
	}
	m.sent = append(m.sent, capturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func boolPtr(v bool) *bool { return &v }

func TestSendManualReportMailsOptedInRecipients(t *testing.T) {
	mail := &capturingMailer{}
	svc := New(memory.NewSeeded(), mail, nil)
	ctx := adminCtx()

	owner, err := svc.AddRecipient(ctx, "owner@resto.test")
	require.NoError(t, err)
	alertsOnly, err := svc.AddRecipient(ctx, "kitchen@resto.test")
	require.NoError(t, err)
	_, err = svc.UpdateRecipient(ctx, alertsOnly.ID, domain.RecipientUpdate{ManualReports: boolPtr(false)})
	require.NoError(t, err)

	// Seeded Rice: id 1, price 50.
	_, err = svc.RecordSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemInput{{ProductID: 1, Quantity: qty("10")}},
	})
	require.NoError(t, err)

	sent, failed, err := svc.SendManualReport(ctx, "daily", "", "")
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Empty(t, failed)

	require.Len(t, mail.sent, 1)
	require.Equal(t, "owner@resto.test", mail.sent[0].To)
	require.Contains(t, mail.sent[0].Subject, "Sales Report")
	require.Contains(t, mail.sent[0].Body, "500")

	logs, err := svc.AlertHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, domain.AlertTypeManual, logs[0].Type)
	require.Equal(t, owner.ID, logs[0].RecipientID)
}

func TestSendManualReportCollectsDeliveryFailures(t *testing.T) {
	mail := &capturingMailer{failFor: "broken@resto.test"}
	svc := New(memory.NewSeeded(), mail, nil)
	ctx := adminCtx()

	_, err := svc.AddRecipient(ctx, "broken@resto.test")
	require.NoError(t, err)
	_, err = svc.AddRecipient(ctx, "owner@resto.test")
	require.NoError(t, err)

	sent, failed, err := svc.SendManualReport(ctx, "weekly", "", "")
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, []string{"broken@resto.test"}, failed)

	logs, err := svc.AlertHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1, "failed delivery must not be logged")
}

func TestSendManualReportValidation(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	_, _, err := svc.SendManualReport(ctx, "daily", "", "")
	require.ErrorIs(t, err, store.ErrInvalidInput, "no recipients configured")

	_, err = svc.AddRecipient(ctx, "owner@resto.test")
	require.NoError(t, err)

	_, _, err = svc.SendManualReport(ctx, "custom", "2026-08-01", "")
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, _, err = svc.SendManualReport(staffCtx(), "daily", "", "")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "role required"))
}

func TestAddRecipientRejectsBadEmail(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	_, err := svc.AddRecipient(ctx, "not-an-address")
	require.ErrorIs(t, err, store.ErrInvalidInput)

	r, err := svc.AddRecipient(ctx, "  Owner@Resto.Test ")
	require.NoError(t, err)
	require.Equal(t, "owner@resto.test", r.Email)
	require.True(t, r.Enabled)
	require.True(t, r.AutoAlerts)
	require.True(t, r.ManualReports)
}
