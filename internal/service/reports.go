package service

import (
	"context"
	"fmt"
	"time"

	"restostock/backend/internal/domain"
	"restostock/backend/internal/store"
)

const dateLayout = "2006-01-02"

// ResolveReportWindow turns a report type plus optional custom bounds into a
// concrete [start, end] day range, both inclusive.
func ResolveReportWindow(reportType, startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	today := now.UTC().Truncate(24 * time.Hour)

	switch reportType {
	case "", domain.ReportTypeDaily:
		return today, today, nil
	case domain.ReportTypeWeekly:
		return today.AddDate(0, 0, -6), today, nil
	case domain.ReportTypeMonthly:
		return today.AddDate(0, 0, -29), today, nil
	case domain.ReportTypeCustom:
		if startStr == "" || endStr == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: custom report requires start_date and end_date", store.ErrInvalidInput)
		}
		start, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start_date %q", store.ErrInvalidInput, startStr)
		}
		end, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end_date %q", store.ErrInvalidInput, endStr)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date before start_date", store.ErrInvalidInput)
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown report type %q", store.ErrInvalidInput, reportType)
	}
}

func (s *Service) SalesReport(ctx context.Context, reportType, startStr, endStr string) (domain.SalesReport, error) {
	start, end, err := ResolveReportWindow(reportType, startStr, endStr, time.Now())
	if err != nil {
		return domain.SalesReport{}, err
	}
	return s.repo.SalesReport(ctx, start, end)
}

func (s *Service) SalesReportRange(ctx context.Context, start, end time.Time) (domain.SalesReport, error) {
	return s.repo.SalesReport(ctx, start, end)
}

func (s *Service) PurchaseReport(ctx context.Context, reportType, startStr, endStr string) (domain.PurchaseReport, error) {
	start, end, err := ResolveReportWindow(reportType, startStr, endStr, time.Now())
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	return s.repo.PurchaseReport(ctx, start, end)
}
