package service

import (
	"context"
	"time"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

const defaultRecentRides = 8

// DailyReport aggregates the rides created on one calendar day.
type DailyReport struct {
	Day            string `json:"day"`
	Count          int    `json:"count"`
	CompletedCount int    `json:"completed_count"`
	GatewayRevenue int64  `json:"gateway_revenue"`
	CashCount      int    `json:"cash_count"`
}

// QueryService answers read-only questions about rides.
type QueryService struct {
	store repository.Store
	loc   *time.Location
}

// NewQueryService creates a new QueryService. Report days are calendar days
// in loc; nil means UTC.
func NewQueryService(store repository.Store, loc *time.Location) *QueryService {
	if loc == nil {
		loc = time.UTC
	}
	return &QueryService{store: store, loc: loc}
}

// ListRides returns rides matching filter in booking order.
func (s *QueryService) ListRides(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	return s.store.Rides().List(ctx, filter)
}

// RecentRides returns the n newest rides, newest first.
func (s *QueryService) RecentRides(ctx context.Context, n int) ([]*domain.Ride, error) {
	if n <= 0 {
		n = defaultRecentRides
	}
	rides, err := s.store.Rides().List(ctx, repository.RideFilter{})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Ride, 0, min(n, len(rides)))
	for i := len(rides) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, rides[i])
	}
	return out, nil
}

// Report summarises the rides created on day. Every figure is computed from
// the current state of each ride, so a ride counts once however often its
// status changed.
func (s *QueryService) Report(ctx context.Context, day time.Time) (DailyReport, error) {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	rides, err := s.store.Rides().List(ctx, repository.RideFilter{})
	if err != nil {
		return DailyReport{}, err
	}

	report := DailyReport{Day: start.Format(time.DateOnly)}
	for _, r := range rides {
		if r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}
		report.Count++
		if r.Status == domain.RideStatusCompleted {
			report.CompletedCount++
		}
		switch r.PaymentMethod {
		case domain.PaymentMethodGateway:
			if r.PaymentStatus == domain.PaymentStatusSuccess {
				report.GatewayRevenue += r.EstimatedFare
			}
		case domain.PaymentMethodCash:
			report.CashCount++
		}
	}
	return report, nil
}

// PaymentRecords lists gateway payments, newest first.
func (s *QueryService) PaymentRecords(ctx context.Context) ([]domain.PaymentRecord, error) {
	return paymentRecords(ctx, s.store.Rides())
}
