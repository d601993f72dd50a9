package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/redis"
	"instantride/internal/repository"
)

// PaymentGateway is the interface for the payment provider.
type PaymentGateway interface {
	// InitiatePayment opens a payment for amount naira and returns its
	// transaction reference. The outcome arrives later.
	InitiatePayment(ctx context.Context, rideID string, amount int64) (string, error)

	// VerifyPayment asks the provider for the current state of txRef.
	VerifyPayment(ctx context.Context, txRef string) (domain.PaymentStatus, error)
}

// MockGateway is an in-process PaymentGateway. Payments stay pending until
// Settle is called.
type MockGateway struct {
	mu       sync.Mutex
	payments map[string]domain.PaymentStatus
	now      func() time.Time
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{payments: make(map[string]domain.PaymentStatus), now: time.Now}
}

// InitiatePayment issues a PTG_TX_<unix ms>_<n> reference.
func (g *MockGateway) InitiatePayment(ctx context.Context, rideID string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		txRef := fmt.Sprintf("PTG_TX_%d_%d", g.now().UnixMilli(), rand.Intn(10000))
		if _, taken := g.payments[txRef]; !taken {
			g.payments[txRef] = domain.PaymentStatusPending
			return txRef, nil
		}
	}
}

// VerifyPayment reports the recorded outcome of txRef.
func (g *MockGateway) VerifyPayment(_ context.Context, txRef string) (domain.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.payments[txRef]
	if !ok {
		return "", repository.ErrNotFound
	}
	return status, nil
}

// Settle decides the outcome of txRef, as the provider's checkout page would.
func (g *MockGateway) Settle(txRef string, succeeded bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payments[txRef]; !ok {
		return repository.ErrNotFound
	}
	if succeeded {
		g.payments[txRef] = domain.PaymentStatusSuccess
	} else {
		g.payments[txRef] = domain.PaymentStatusFailed
	}
	return nil
}

// PaymentService reconciles gateway payments with rides.
type PaymentService struct {
	store         repository.Store
	gateway       PaymentGateway
	notifications *NotificationService
	cache         rideCache
	log           logger.ILogger
	now           func() time.Time
}

// NewPaymentService creates a new PaymentService. cache may be nil.
func NewPaymentService(
	store repository.Store,
	gateway PaymentGateway,
	notifications *NotificationService,
	cache redis.RideCacheInterface,
	log logger.ILogger,
) *PaymentService {
	return &PaymentService{
		store:         store,
		gateway:       gateway,
		notifications: notifications,
		cache:         rideCache{cache: cache, log: log},
		log:           log,
		now:           time.Now,
	}
}

// Initiate starts a gateway payment for a ride, or retries one that failed.
func (s *PaymentService) Initiate(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	// Reject early so the provider is not asked to open a payment that
	// could never be attached.
	if err := ride.Clone().AttachTxRef("", s.now()); err != nil {
		return nil, err
	}

	txRef, err := s.gateway.InitiatePayment(ctx, ride.ID, ride.EstimatedFare)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if err := r.AttachTxRef(txRef, s.now()); err != nil {
			return err
		}
		if err := tx.Rides().Update(ctx, r); err != nil {
			return err
		}
		ride = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, ride.ID)
	s.log.Info("payment initiated",
		logger.String("ride_id", ride.ID),
		logger.String("tx_ref", txRef),
		logger.Int64("amount", ride.EstimatedFare),
	)
	return ride, nil
}

// HandleCallback applies the provider's asynchronous result for txRef. The
// webhook body is not trusted: the outcome is recorded only when the gateway
// confirms it.
func (s *PaymentService) HandleCallback(ctx context.Context, txRef string, succeeded bool) (*domain.Ride, error) {
	if txRef == "" {
		return nil, ErrInvalidTxRef
	}

	status, err := s.confirm(ctx, txRef)
	if err != nil {
		return nil, err
	}
	reported := domain.PaymentStatusFailed
	if succeeded {
		reported = domain.PaymentStatusSuccess
	}
	if status != reported {
		s.log.Warning("payment callback not confirmed by gateway",
			logger.String("tx_ref", txRef),
			logger.Bool("succeeded", succeeded),
			logger.String("gateway_status", string(status)),
		)
		return nil, ErrPaymentUnconfirmed
	}
	return s.record(ctx, txRef, succeeded)
}

// Verify asks the gateway for the state of txRef and records a final
// outcome. A payment still pending leaves the ride untouched.
func (s *PaymentService) Verify(ctx context.Context, txRef string) (*domain.Ride, error) {
	if txRef == "" {
		return nil, ErrInvalidTxRef
	}

	status, err := s.confirm(ctx, txRef)
	if err != nil {
		return nil, err
	}

	switch status {
	case domain.PaymentStatusSuccess:
		return s.record(ctx, txRef, true)
	case domain.PaymentStatusFailed:
		return s.record(ctx, txRef, false)
	}
	return s.store.Rides().GetByTxRef(ctx, txRef)
}

// confirm asks the gateway for the state of txRef. An unknown reference is
// ErrNotFound; any other failure is ErrGatewayUnavailable.
func (s *PaymentService) confirm(ctx context.Context, txRef string) (domain.PaymentStatus, error) {
	status, err := s.gateway.VerifyPayment(ctx, txRef)
	if errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return status, nil
}

func (s *PaymentService) record(ctx context.Context, txRef string, succeeded bool) (*domain.Ride, error) {
	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByTxRef(ctx, txRef)
		if err != nil {
			return err
		}
		if err := r.RecordGatewayResult(txRef, succeeded, s.now()); err != nil {
			return err
		}
		if err := tx.Rides().Update(ctx, r); err != nil {
			return err
		}
		ride = r
		return nil
	})
	if err != nil {
		s.log.Warning("payment result rejected",
			logger.String("tx_ref", txRef),
			logger.Bool("succeeded", succeeded),
			logger.Error(err),
		)
		return nil, err
	}

	s.cache.invalidate(ctx, ride.ID)
	s.log.Info("payment result recorded",
		logger.String("ride_id", ride.ID),
		logger.String("tx_ref", txRef),
		logger.String("status", string(ride.PaymentStatus)),
	)
	s.notifications.PaymentResult(ride)
	return ride, nil
}

// Records lists gateway payments, newest first.
func (s *PaymentService) Records(ctx context.Context) ([]domain.PaymentRecord, error) {
	return paymentRecords(ctx, s.store.Rides())
}

func paymentRecords(ctx context.Context, rides repository.RideRepository) ([]domain.PaymentRecord, error) {
	list, err := rides.List(ctx, repository.RideFilter{PaymentMethod: domain.PaymentMethodGateway})
	if err != nil {
		return nil, err
	}

	records := make([]domain.PaymentRecord, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		r := list[i]
		records = append(records, domain.PaymentRecord{
			RideID:     r.ID,
			PublicCode: r.PublicCode,
			Amount:     r.EstimatedFare,
			TxRef:      r.TxRef,
			Status:     r.PaymentStatus,
			CreatedAt:  r.CreatedAt,
		})
	}
	return records, nil
}
