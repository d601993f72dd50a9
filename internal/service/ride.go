package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/redis"
	"instantride/internal/repository"
)

const (
	publicCodePrefix   = "PTG-"
	publicCodeAttempts = 5
)

var publicCodeSpace = big.NewInt(1_000_000)

// RouteProvider estimates distance and duration between two free-text
// locations.
type RouteProvider interface {
	EstimateRoute(ctx context.Context, class domain.VehicleClass, pickup, dropoff string) (domain.RouteEstimate, error)
}

// RideService handles the ride lifecycle.
type RideService struct {
	store         repository.Store
	pricing       *PricingRegistry
	routes        RouteProvider
	payments      *PaymentService
	notifications *NotificationService
	cache         rideCache
	log           logger.ILogger
	now           func() time.Time
	newCode       func() (string, error)
}

// NewRideService creates a new RideService. cache may be nil.
func NewRideService(
	store repository.Store,
	pricing *PricingRegistry,
	routes RouteProvider,
	payments *PaymentService,
	notifications *NotificationService,
	cache redis.RideCacheInterface,
	log logger.ILogger,
) *RideService {
	return &RideService{
		store:         store,
		pricing:       pricing,
		routes:        routes,
		payments:      payments,
		notifications: notifications,
		cache:         rideCache{cache: cache, log: log},
		log:           log,
		now:           time.Now,
		newCode:       randomPublicCode,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	VehicleClass  domain.VehicleClass
	Pickup        string
	Dropoff       string
	Note          string
	PaymentMethod domain.PaymentMethod
	Quote         domain.Quote
}

// Create stores a new ride in requested state with the quoted fare frozen.
func (s *RideService) Create(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	ride := &domain.Ride{
		ID:                uuid.New().String(),
		VehicleClass:      req.VehicleClass,
		Pickup:            strings.TrimSpace(req.Pickup),
		Dropoff:           strings.TrimSpace(req.Dropoff),
		Note:              strings.TrimSpace(req.Note),
		EstimatedFare:     req.Quote.Fare,
		DistanceKm:        req.Quote.DistanceKm,
		DurationMin:       req.Quote.DurationMin,
		PricingSnapshotID: req.Quote.SnapshotID,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     domain.PaymentStatusNotApplicable,
		Status:            domain.RideStatusRequested,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.PaymentMethod == domain.PaymentMethodGateway {
		ride.PaymentStatus = domain.PaymentStatusPending
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		for attempt := 0; attempt < publicCodeAttempts; attempt++ {
			code, err := s.newCode()
			if err != nil {
				return err
			}
			_, err = tx.Rides().GetByPublicCode(ctx, code)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			ride.PublicCode = code
			return tx.Rides().Create(ctx, ride)
		}
		return domain.ErrPublicCodeExhausted
	})
	if err != nil {
		if errors.Is(err, domain.ErrPublicCodeExhausted) {
			s.log.Error("public code space exhausted", logger.Int("attempts", publicCodeAttempts))
		}
		return nil, err
	}

	s.log.Info("ride created",
		logger.String("ride_id", ride.ID),
		logger.String("public_code", ride.PublicCode),
		logger.String("vehicle_class", string(ride.VehicleClass)),
		logger.Int64("fare", ride.EstimatedFare),
	)
	s.notifications.RideBooked(ride)
	return ride, nil
}

// validateCreateRequest validates the create ride request.
func (s *RideService) validateCreateRequest(req CreateRideRequest) error {
	if !req.VehicleClass.Valid() {
		return domain.ErrUnknownVehicleClass
	}
	if err := domain.ValidateLocations(req.Pickup, req.Dropoff); err != nil {
		return err
	}
	if req.PaymentMethod != domain.PaymentMethodCash && req.PaymentMethod != domain.PaymentMethodGateway {
		return domain.ErrUnknownPaymentMethod
	}
	if req.Quote.VehicleClass != req.VehicleClass || req.Quote.Fare < 0 {
		return domain.ErrQuoteMismatch
	}
	return nil
}

// Quote prices a trip with the active pricing rule.
func (s *RideService) Quote(class domain.VehicleClass, distanceKm, durationMin float64) (domain.Quote, error) {
	return s.pricing.Quote(class, distanceKm, durationMin)
}

// Estimate routes pickup to dropoff and prices the trip with the active
// rule for class.
func (s *RideService) Estimate(ctx context.Context, class domain.VehicleClass, pickup, dropoff string) (domain.Quote, error) {
	if !class.Valid() {
		return domain.Quote{}, domain.ErrUnknownVehicleClass
	}
	if err := domain.ValidateLocations(pickup, dropoff); err != nil {
		return domain.Quote{}, err
	}

	estimate, err := s.routes.EstimateRoute(ctx, class, pickup, dropoff)
	if err != nil {
		s.log.Warning("route estimate failed",
			logger.String("pickup", pickup),
			logger.String("dropoff", dropoff),
			logger.Error(err),
		)
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
	}
	return s.pricing.Quote(class, estimate.DistanceKm, estimate.DurationMin)
}

// BookRideRequest contains the parameters for the customer booking flow.
type BookRideRequest struct {
	VehicleClass  domain.VehicleClass
	Pickup        string
	Dropoff       string
	Note          string
	PaymentMethod domain.PaymentMethod
}

// Book runs the customer checkout: estimate the route, quote it, create the
// ride and, for gateway rides, start the payment. A failed payment start
// leaves the ride pending so the customer can retry.
func (s *RideService) Book(ctx context.Context, req BookRideRequest) (*domain.Ride, error) {
	quote, err := s.Estimate(ctx, req.VehicleClass, req.Pickup, req.Dropoff)
	if err != nil {
		return nil, err
	}

	ride, err := s.Create(ctx, CreateRideRequest{
		VehicleClass:  req.VehicleClass,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		Note:          req.Note,
		PaymentMethod: req.PaymentMethod,
		Quote:         quote,
	})
	if err != nil {
		return nil, err
	}

	if ride.PaymentMethod == domain.PaymentMethodGateway && s.payments != nil {
		paid, err := s.payments.Initiate(ctx, ride.ID)
		if err != nil {
			s.log.Warning("payment initiation failed",
				logger.String("ride_id", ride.ID),
				logger.Error(err),
			)
			return ride, nil
		}
		return paid, nil
	}
	return ride, nil
}

// Get retrieves a ride by ID.
func (s *RideService) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if ride := s.cache.get(ctx, rideID); ride != nil {
		return ride, nil
	}

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, ride)
	return ride, nil
}

// GetByPublicCode retrieves a ride by the code printed on the customer's
// tracking page.
func (s *RideService) GetByPublicCode(ctx context.Context, code string) (*domain.Ride, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidRideID
	}
	return s.store.Rides().GetByPublicCode(ctx, code)
}

// AdvanceStatus moves a ride to its next status. Completing a ride frees its
// driver or seat in the same unit of work.
func (s *RideService) AdvanceStatus(ctx context.Context, rideID string, to domain.RideStatus) (*domain.Ride, error) {
	if to == domain.RideStatusCancelled {
		return s.Cancel(ctx, rideID)
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := r.Advance(to, now); err != nil {
			return err
		}
		if to == domain.RideStatusCompleted {
			if _, err := releaseAssignment(ctx, tx, r, now); err != nil {
				return err
			}
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
	s.log.Info("ride status changed",
		logger.String("ride_id", ride.ID),
		logger.String("status", string(ride.Status)),
	)
	s.notifications.StatusChanged(ride)
	return ride, nil
}

// Cancel cancels a ride and frees its driver or seat. Cancelling a cancelled
// ride returns it unchanged.
func (s *RideService) Cancel(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	var (
		ride     *domain.Ride
		changed  bool
		released string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		ride = r

		now := s.now()
		if changed, err = r.Cancel(now); err != nil || !changed {
			return err
		}
		if released, err = releaseAssignment(ctx, tx, r, now); err != nil {
			return err
		}
		return tx.Rides().Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return ride, nil
	}

	s.cache.invalidate(ctx, ride.ID)
	s.log.Info("ride cancelled", logger.String("ride_id", ride.ID))
	s.notifications.RideCancelled(ride, released)
	return ride, nil
}

// ConfirmCashPaid records that the driver collected cash.
func (s *RideService) ConfirmCashPaid(ctx context.Context, rideID string) (*domain.Ride, error) {
	return s.mutate(ctx, rideID, func(r *domain.Ride, now time.Time) error {
		return r.ConfirmCashPaid(now)
	})
}

// SwitchToCash moves an unpaid gateway ride to cash payment.
func (s *RideService) SwitchToCash(ctx context.Context, rideID string) (*domain.Ride, error) {
	return s.mutate(ctx, rideID, func(r *domain.Ride, now time.Time) error {
		return r.SwitchToCash(now)
	})
}

// RecordGatewayResult applies a payment outcome to a gateway ride.
func (s *RideService) RecordGatewayResult(ctx context.Context, rideID, txRef string, succeeded bool) (*domain.Ride, error) {
	ride, err := s.mutate(ctx, rideID, func(r *domain.Ride, now time.Time) error {
		return r.RecordGatewayResult(txRef, succeeded, now)
	})
	if err != nil {
		return nil, err
	}
	s.notifications.PaymentResult(ride)
	return ride, nil
}

// mutate applies fn to a ride inside one unit of work and stores the result.
func (s *RideService) mutate(ctx context.Context, rideID string, fn func(r *domain.Ride, now time.Time) error) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if err := fn(r, s.now()); err != nil {
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
	return ride, nil
}

// releaseAssignment frees whatever the ride was holding and returns the
// driver that should be told about it.
func releaseAssignment(ctx context.Context, tx repository.Repositories, ride *domain.Ride, now time.Time) (string, error) {
	a := ride.Assignment
	if a == nil {
		return "", nil
	}

	if a.IsShuttle() {
		shuttle, err := tx.Shuttles().GetByID(ctx, a.ShuttleID)
		if err != nil {
			return "", fmt.Errorf("failed to load shuttle %s: %w", a.ShuttleID, err)
		}
		if !shuttle.ReleaseRide(ride.ID, now) {
			return shuttle.DriverID, nil
		}
		return shuttle.DriverID, tx.Shuttles().Update(ctx, shuttle)
	}

	driver, err := tx.Drivers().GetByID(ctx, a.DriverID)
	if err != nil {
		return "", fmt.Errorf("failed to load driver %s: %w", a.DriverID, err)
	}
	if driver.Status != domain.DriverStatusBusy {
		return driver.ID, nil
	}
	driver.Status = domain.DriverStatusAvailable
	driver.UpdatedAt = now
	return driver.ID, tx.Drivers().Update(ctx, driver)
}

func randomPublicCode() (string, error) {
	n, err := rand.Int(rand.Reader, publicCodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to draw public code: %w", err)
	}
	return fmt.Sprintf("%s%06d", publicCodePrefix, n.Int64()), nil
}

// rideCache wraps the optional ride cache. Cache errors never fail a
// request.
type rideCache struct {
	cache redis.RideCacheInterface
	log   logger.ILogger
}

func (c rideCache) get(ctx context.Context, rideID string) *domain.Ride {
	if c.cache == nil {
		return nil
	}
	ride, err := c.cache.GetRide(ctx, rideID)
	if err != nil {
		c.log.Warning("ride cache read failed", logger.String("ride_id", rideID), logger.Error(err))
		return nil
	}
	return ride
}

func (c rideCache) set(ctx context.Context, ride *domain.Ride) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetRide(ctx, ride); err != nil {
		c.log.Warning("ride cache write failed", logger.String("ride_id", ride.ID), logger.Error(err))
	}
}

func (c rideCache) invalidate(ctx context.Context, rideID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateRide(ctx, rideID); err != nil {
		c.log.Warning("ride cache invalidation failed", logger.String("ride_id", rideID), logger.Error(err))
	}
}
