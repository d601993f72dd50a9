package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/redis"
	"instantride/internal/repository"
)

const (
	defaultDispatchLockTTL = 5 * time.Second
	defaultETAMin          = 6
)

// DispatchService assigns rides to drivers and shuttle seats.
//
// Every assignment takes a try-lock on the ride and on the target before its
// unit of work, so two dispatchers racing for the same ride or driver see
// exactly one winner; the loser gets a Conflict error and nothing changes.
type DispatchService struct {
	store         repository.Store
	locks         redis.LockStoreInterface
	notifications *NotificationService
	cache         rideCache
	log           logger.ILogger
	lockTTL       time.Duration
	defaultETA    int
	now           func() time.Time
}

// NewDispatchService creates a new DispatchService. Non-positive lockTTL or
// defaultETA select the package defaults.
func NewDispatchService(
	store repository.Store,
	locks redis.LockStoreInterface,
	notifications *NotificationService,
	cache redis.RideCacheInterface,
	log logger.ILogger,
	lockTTL time.Duration,
	defaultETA int,
) *DispatchService {
	if lockTTL <= 0 {
		lockTTL = defaultDispatchLockTTL
	}
	if defaultETA <= 0 {
		defaultETA = defaultETAMin
	}
	return &DispatchService{
		store:         store,
		locks:         locks,
		notifications: notifications,
		cache:         rideCache{cache: cache, log: log},
		log:           log,
		lockTTL:       lockTTL,
		defaultETA:    defaultETA,
		now:           time.Now,
	}
}

// FindEligibleDrivers returns available drivers of class ordered by ID.
func (s *DispatchService) FindEligibleDrivers(ctx context.Context, class domain.VehicleClass) ([]*domain.Driver, error) {
	if !class.Valid() {
		return nil, domain.ErrUnknownVehicleClass
	}

	drivers, err := s.store.Drivers().List(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]*domain.Driver, 0, len(drivers))
	for _, d := range drivers {
		if d.VehicleClass == class && d.IsAvailable() {
			eligible = append(eligible, d)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible, nil
}

// AssignDriver assigns a car ride to an available driver.
func (s *DispatchService) AssignDriver(ctx context.Context, rideID, driverID string, etaMin int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	unlock, err := s.lock(ctx, redis.RideLockKey(rideID), redis.DriverLockKey(driverID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		ride   *domain.Ride
		driver *domain.Driver
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		d, err := tx.Drivers().GetByID(ctx, driverID)
		if err != nil {
			return err
		}

		if err := r.CheckAssignable(); err != nil {
			return err
		}
		if d.VehicleClass != r.VehicleClass {
			return domain.ErrVehicleClassMismatch
		}
		if !d.IsAvailable() {
			return domain.ErrDriverUnavailable
		}

		now := s.now()
		if err := r.AssignDriver(d.ID, etaMin, now); err != nil {
			return err
		}
		d.Status = domain.DriverStatusBusy
		d.UpdatedAt = now

		if err := tx.Rides().Update(ctx, r); err != nil {
			return err
		}
		if err := tx.Drivers().Update(ctx, d); err != nil {
			return err
		}
		ride, driver = r, d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, ride.ID)
	s.log.Info("driver assigned",
		logger.String("ride_id", ride.ID),
		logger.String("driver_id", driver.ID),
		logger.Int("eta_min", ride.Assignment.ETAMin),
	)
	s.notifications.DriverAssigned(ride, driver)
	return ride, nil
}

// FindEligibleShuttles returns active shuttles with free seats. Shuttles
// that still have pickup ahead of them come first, nearest stop first; the
// rest follow. Ties are broken by ID.
func (s *DispatchService) FindEligibleShuttles(ctx context.Context, class domain.VehicleClass, pickup string) ([]*domain.Shuttle, error) {
	if !class.Valid() {
		return nil, domain.ErrUnknownVehicleClass
	}
	if class != domain.VehicleClassBus {
		return nil, domain.ErrVehicleClassMismatch
	}

	shuttles, err := s.store.Shuttles().List(ctx)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		shuttle *domain.Shuttle
		stops   int
	}
	candidates := make([]ranked, 0, len(shuttles))
	for _, sh := range shuttles {
		if sh.Status != domain.ShuttleStatusActive || sh.IsFull() {
			continue
		}
		candidates = append(candidates, ranked{shuttle: sh, stops: sh.StopsUntil(pickup)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aHit, bHit := a.stops >= 0, b.stops >= 0
		if aHit != bHit {
			return aHit
		}
		if aHit && a.stops != b.stops {
			return a.stops < b.stops
		}
		return a.shuttle.ID < b.shuttle.ID
	})

	out := make([]*domain.Shuttle, len(candidates))
	for i, c := range candidates {
		out[i] = c.shuttle
	}
	return out, nil
}

// FindEligibleShuttle returns the best shuttle for a pickup.
func (s *DispatchService) FindEligibleShuttle(ctx context.Context, class domain.VehicleClass, pickup string) (*domain.Shuttle, error) {
	shuttles, err := s.FindEligibleShuttles(ctx, class, pickup)
	if err != nil {
		return nil, err
	}
	if len(shuttles) == 0 {
		return nil, ErrNoShuttleAvailable
	}
	return shuttles[0], nil
}

// AssignShuttle seats a bus ride on a shuttle run.
func (s *DispatchService) AssignShuttle(ctx context.Context, rideID, shuttleID string, etaMin int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if shuttleID == "" {
		return nil, ErrInvalidShuttleID
	}

	unlock, err := s.lock(ctx, redis.RideLockKey(rideID), redis.ShuttleLockKey(shuttleID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		ride    *domain.Ride
		shuttle *domain.Shuttle
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		r, err := tx.Rides().GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		sh, err := tx.Shuttles().GetByID(ctx, shuttleID)
		if err != nil {
			return err
		}

		if err := r.CheckAssignable(); err != nil {
			return err
		}
		if r.VehicleClass != domain.VehicleClassBus {
			return domain.ErrVehicleClassMismatch
		}

		now := s.now()
		seat, err := sh.AcceptRide(r.ID, now)
		if err != nil {
			return err
		}
		if err := r.AssignShuttle(sh.ID, seat, etaMin, now); err != nil {
			return err
		}

		if err := tx.Rides().Update(ctx, r); err != nil {
			return err
		}
		if err := tx.Shuttles().Update(ctx, sh); err != nil {
			return err
		}
		ride, shuttle = r, sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, ride.ID)
	s.log.Info("shuttle seat assigned",
		logger.String("ride_id", ride.ID),
		logger.String("shuttle_id", shuttle.ID),
		logger.Int("seat", ride.Assignment.Seat),
		logger.Int("filled", shuttle.Filled),
	)
	s.notifications.SeatAssigned(ride, shuttle)
	return ride, nil
}

// AutoAssign gives a requested ride to the first eligible driver or shuttle.
// A non-positive etaMin selects the configured default.
func (s *DispatchService) AutoAssign(ctx context.Context, rideID string, etaMin int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if etaMin <= 0 {
		etaMin = s.defaultETA
	}

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := ride.CheckAssignable(); err != nil {
		return nil, err
	}

	if ride.VehicleClass == domain.VehicleClassBus {
		shuttles, err := s.FindEligibleShuttles(ctx, ride.VehicleClass, ride.Pickup)
		if err != nil {
			return nil, err
		}
		for _, sh := range shuttles {
			assigned, err := s.AssignShuttle(ctx, rideID, sh.ID, etaMin)
			if err == nil || !targetLost(err) {
				return assigned, err
			}
		}
		return nil, ErrNoShuttleAvailable
	}

	drivers, err := s.FindEligibleDrivers(ctx, ride.VehicleClass)
	if err != nil {
		return nil, err
	}
	for _, d := range drivers {
		assigned, err := s.AssignDriver(ctx, rideID, d.ID, etaMin)
		if err == nil || !targetLost(err) {
			return assigned, err
		}
	}
	return nil, ErrNoDriverAvailable
}

// targetLost reports whether an assignment failed only because another
// dispatcher took the driver or seat first.
func targetLost(err error) bool {
	return errors.Is(err, ErrTargetBusy) ||
		errors.Is(err, domain.ErrDriverUnavailable) ||
		errors.Is(err, domain.ErrShuttleFull) ||
		errors.Is(err, domain.ErrShuttleEnded)
}

// lock takes the ride lock and then the target lock without waiting. The
// returned func releases both.
func (s *DispatchService) lock(ctx context.Context, rideKey, targetKey string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}

	rideToken, ok, err := s.locks.AcquireLock(ctx, rideKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRideBusy
	}

	release := context.WithoutCancel(ctx)
	targetToken, ok, err := s.locks.AcquireLock(ctx, targetKey, s.lockTTL)
	if err != nil || !ok {
		_ = s.locks.ReleaseLock(release, rideKey, rideToken)
		if err != nil {
			return nil, err
		}
		return nil, ErrTargetBusy
	}

	return func() {
		if err := s.locks.ReleaseLock(release, targetKey, targetToken); err != nil {
			s.log.Warning("failed to release dispatch lock", logger.String("key", targetKey), logger.Error(err))
		}
		if err := s.locks.ReleaseLock(release, rideKey, rideToken); err != nil {
			s.log.Warning("failed to release dispatch lock", logger.String("key", rideKey), logger.Error(err))
		}
	}, nil
}
