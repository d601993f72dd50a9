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

// DriverService manages the driver roster. The busy status belongs to
// dispatch and cannot be set by hand.
type DriverService struct {
	store repository.Store
	log   logger.ILogger
	now   func() time.Time
}

// NewDriverService creates a new DriverService.
func NewDriverService(store repository.Store, log logger.ILogger) *DriverService {
	return &DriverService{store: store, log: log, now: time.Now}
}

// RegisterDriverRequest contains the parameters for adding a driver.
type RegisterDriverRequest struct {
	ID           string // optional
	Name         string
	Contact      string
	VehicleClass domain.VehicleClass
	Vehicle      string
	Plate        string
}

// Register adds an available driver to the roster.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrDriverNameRequired
	}
	if !req.VehicleClass.Valid() {
		return nil, domain.ErrUnknownVehicleClass
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}
	driver := &domain.Driver{
		ID:           id,
		Name:         name,
		Contact:      strings.TrimSpace(req.Contact),
		VehicleClass: req.VehicleClass,
		Vehicle:      strings.TrimSpace(req.Vehicle),
		Plate:        strings.ToUpper(strings.TrimSpace(req.Plate)),
		Status:       domain.DriverStatusAvailable,
		UpdatedAt:    s.now(),
	}
	if err := s.store.Drivers().Create(ctx, driver); err != nil {
		return nil, err
	}

	s.log.Info("driver registered",
		logger.String("driver_id", driver.ID),
		logger.String("vehicle_class", string(driver.VehicleClass)),
	)
	return driver, nil
}

// Get retrieves a driver by ID.
func (s *DriverService) Get(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.store.Drivers().GetByID(ctx, driverID)
}

// List returns the roster ordered by ID.
func (s *DriverService) List(ctx context.Context) ([]*domain.Driver, error) {
	return s.store.Drivers().List(ctx)
}

// SetStatus moves a driver between available and offline.
func (s *DriverService) SetStatus(ctx context.Context, driverID string, status domain.DriverStatus) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if status != domain.DriverStatusAvailable && status != domain.DriverStatusOffline {
		return nil, domain.ErrInvalidDriverStatus
	}

	var driver *domain.Driver
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		d, err := tx.Drivers().GetByID(ctx, driverID)
		if err != nil {
			return err
		}
		if d.Status == domain.DriverStatusBusy {
			return domain.ErrDriverOnRide
		}
		driver = d
		if d.Status == status {
			return nil
		}
		d.Status = status
		d.UpdatedAt = s.now()
		return tx.Drivers().Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("driver status set",
		logger.String("driver_id", driver.ID),
		logger.String("status", string(driver.Status)),
	)
	return driver, nil
}
