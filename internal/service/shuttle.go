package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/repository"
)

// ShuttleService manages shuttle runs. Seats are taken and released only
// through dispatch and the ride lifecycle.
type ShuttleService struct {
	store repository.Store
	log   logger.ILogger
	now   func() time.Time
}

// NewShuttleService creates a new ShuttleService.
func NewShuttleService(store repository.Store, log logger.ILogger) *ShuttleService {
	return &ShuttleService{store: store, log: log, now: time.Now}
}

// RegisterShuttleRequest contains the parameters for starting a shuttle run.
type RegisterShuttleRequest struct {
	ID        string // optional
	DriverID  string
	Capacity  int
	Junctions []string
}

// Register starts a shuttle run driven by a bus driver.
func (s *ShuttleService) Register(ctx context.Context, req RegisterShuttleRequest) (*domain.Shuttle, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}
	shuttle, err := domain.NewShuttle(id, req.DriverID, req.Capacity, req.Junctions, s.now())
	if err != nil {
		return nil, err
	}

	driver, err := s.store.Drivers().GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.VehicleClass != domain.VehicleClassBus {
		return nil, domain.ErrVehicleClassMismatch
	}

	if err := s.store.Shuttles().Create(ctx, shuttle); err != nil {
		return nil, err
	}

	s.log.Info("shuttle registered",
		logger.String("shuttle_id", shuttle.ID),
		logger.String("driver_id", shuttle.DriverID),
		logger.Int("capacity", shuttle.Capacity),
		logger.Int("junctions", len(shuttle.Junctions)),
	)
	return shuttle, nil
}

// Get retrieves a shuttle by ID.
func (s *ShuttleService) Get(ctx context.Context, shuttleID string) (*domain.Shuttle, error) {
	if shuttleID == "" {
		return nil, ErrInvalidShuttleID
	}
	return s.store.Shuttles().GetByID(ctx, shuttleID)
}

// List returns every shuttle run ordered by ID.
func (s *ShuttleService) List(ctx context.Context) ([]*domain.Shuttle, error) {
	return s.store.Shuttles().List(ctx)
}

// AdvanceJunction moves a shuttle to its next stop.
func (s *ShuttleService) AdvanceJunction(ctx context.Context, shuttleID string) (*domain.Shuttle, error) {
	if shuttleID == "" {
		return nil, ErrInvalidShuttleID
	}

	var shuttle *domain.Shuttle
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		sh, err := tx.Shuttles().GetByID(ctx, shuttleID)
		if err != nil {
			return err
		}
		sh.AdvanceJunction(s.now())
		if err := tx.Shuttles().Update(ctx, sh); err != nil {
			return err
		}
		shuttle = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("shuttle advanced",
		logger.String("shuttle_id", shuttle.ID),
		logger.String("junction", shuttle.CurrentJunction()),
		logger.String("status", string(shuttle.Status)),
	)
	return shuttle, nil
}
