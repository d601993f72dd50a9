package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/repository"
)

// pricingTable is published once and never mutated afterwards.
type pricingTable struct {
	active map[domain.VehicleClass]*domain.PricingSnapshot
	byID   map[string]*domain.PricingSnapshot
}

// PricingRegistry holds the active pricing rule per vehicle class. Readers
// load the current table without locking; each update publishes a new table.
type PricingRegistry struct {
	mu    sync.Mutex // serializes writers
	table atomic.Pointer[pricingTable]
	repo  repository.PricingRepository
	log   logger.ILogger
	now   func() time.Time
}

// NewPricingRegistry creates an empty registry. repo may be nil, in which
// case snapshots live only in memory.
func NewPricingRegistry(repo repository.PricingRepository, log logger.ILogger) *PricingRegistry {
	r := &PricingRegistry{repo: repo, log: log, now: time.Now}
	r.table.Store(&pricingTable{
		active: map[domain.VehicleClass]*domain.PricingSnapshot{},
		byID:   map[string]*domain.PricingSnapshot{},
	})
	return r
}

// GetActive returns the snapshot currently used for class.
func (r *PricingRegistry) GetActive(class domain.VehicleClass) (*domain.PricingSnapshot, error) {
	if !class.Valid() {
		return nil, domain.ErrUnknownVehicleClass
	}
	s, ok := r.table.Load().active[class]
	if !ok {
		return nil, ErrNoPricing
	}
	c := *s
	return &c, nil
}

// Active lists the active snapshots in class display order.
func (r *PricingRegistry) Active() []*domain.PricingSnapshot {
	t := r.table.Load()
	out := make([]*domain.PricingSnapshot, 0, len(t.active))
	for _, c := range domain.VehicleClasses {
		if s, ok := t.active[c]; ok {
			c := *s
			out = append(out, &c)
		}
	}
	return out
}

// Snapshot returns any snapshot ever published.
func (r *PricingRegistry) Snapshot(id string) (*domain.PricingSnapshot, error) {
	s, ok := r.table.Load().byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

// Update validates rule and makes it the active rule for class.
func (r *PricingRegistry) Update(ctx context.Context, class domain.VehicleClass, rule domain.PricingRule) (string, error) {
	if !class.Valid() {
		return "", domain.ErrUnknownVehicleClass
	}
	if err := rule.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := &domain.PricingSnapshot{
		ID:           uuid.New().String(),
		VehicleClass: class,
		Rule:         rule,
		CreatedAt:    r.now(),
	}
	if r.repo != nil {
		if err := r.repo.Save(ctx, snapshot); err != nil {
			return "", fmt.Errorf("failed to save pricing snapshot: %w", err)
		}
	}

	r.publish(snapshot)
	r.log.Info("pricing updated",
		logger.String("vehicle_class", string(class)),
		logger.String("snapshot_id", snapshot.ID),
		logger.Float64("base", rule.Base),
		logger.Float64("per_km", rule.PerKm),
		logger.Float64("per_min", rule.PerMin),
		logger.Float64("min", rule.Min),
	)
	return snapshot.ID, nil
}

// Load restores stored snapshots. The newest snapshot per class becomes
// active.
func (r *PricingRegistry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	snapshots, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pricing snapshots: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range snapshots {
		r.publish(s)
	}
	return nil
}

// Quote prices a trip with the active rule for class and records which
// snapshot produced the fare.
func (r *PricingRegistry) Quote(class domain.VehicleClass, distanceKm, durationMin float64) (domain.Quote, error) {
	snapshot, err := r.GetActive(class)
	if err != nil {
		return domain.Quote{}, err
	}
	fare, err := EstimateFare(class, distanceKm, durationMin, snapshot.Rule)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		VehicleClass: class,
		DistanceKm:   distanceKm,
		DurationMin:  durationMin,
		Fare:         fare,
		SnapshotID:   snapshot.ID,
	}, nil
}

// publish must be called with mu held.
func (r *PricingRegistry) publish(s *domain.PricingSnapshot) {
	old := r.table.Load()
	next := &pricingTable{
		active: make(map[domain.VehicleClass]*domain.PricingSnapshot, len(old.active)+1),
		byID:   make(map[string]*domain.PricingSnapshot, len(old.byID)+1),
	}
	for k, v := range old.active {
		next.active[k] = v
	}
	for k, v := range old.byID {
		next.byID[k] = v
	}
	next.active[s.VehicleClass] = s
	next.byID[s.ID] = s
	r.table.Store(next)
}
