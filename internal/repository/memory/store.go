// Package memory is the in-process implementation of the repositories. It
// keeps rides in insertion order and hands out copies, so callers can only
// change stored state through Update.
package memory

import (
	"context"
	"sync"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// Store is an in-memory repository.Store.
type Store struct {
	mu        sync.RWMutex
	st        *state
	snapshots []*domain.PricingSnapshot
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Rides() repository.RideRepository {
	return &RideRepository{access{s: s}}
}

func (s *Store) Drivers() repository.DriverRepository {
	return &DriverRepository{access{s: s}}
}

func (s *Store) Shuttles() repository.ShuttleRepository {
	return &ShuttleRepository{access{s: s}}
}

func (s *Store) Pricing() repository.PricingRepository {
	return &PricingRepository{s: s}
}

// WithinTx holds the store's write lock for the whole unit of work and
// stages writes in an overlay that is merged only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ov := newOverlay(s.st)
	if err := fn(ctx, &txRepos{access{s: s, tx: ov}}); err != nil {
		return err
	}
	ov.commit()
	return nil
}

type txRepos struct {
	a access
}

func (t *txRepos) Rides() repository.RideRepository       { return &RideRepository{t.a} }
func (t *txRepos) Drivers() repository.DriverRepository   { return &DriverRepository{t.a} }
func (t *txRepos) Shuttles() repository.ShuttleRepository { return &ShuttleRepository{t.a} }

// access routes repository calls either to committed state under the store
// lock or to a unit-of-work overlay whose lock is already held.
type access struct {
	s  *Store
	tx *overlay
}

func (a access) read(fn func(t table) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return fn(a.s.st)
}

func (a access) write(fn func(t table) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return fn(a.s.st)
}

// table is the storage seen by repositories. Stored values are owned by the
// table; repositories clone on the way in and out.
type table interface {
	ride(id string) (*domain.Ride, bool)
	rideByCode(code string) (*domain.Ride, bool)
	rideByTxRef(txRef string) (*domain.Ride, bool)
	rideIDs() []string
	putRide(r *domain.Ride)

	driver(id string) (*domain.Driver, bool)
	driverIDs() []string
	putDriver(d *domain.Driver)

	shuttle(id string) (*domain.Shuttle, bool)
	shuttleIDs() []string
	putShuttle(s *domain.Shuttle)
}

type state struct {
	rides     map[string]*domain.Ride
	rideOrder []string
	rideCodes map[string]string
	rideTx    map[string]string
	drivers   map[string]*domain.Driver
	shuttles  map[string]*domain.Shuttle
}

func newState() *state {
	return &state{
		rides:     make(map[string]*domain.Ride),
		rideCodes: make(map[string]string),
		rideTx:    make(map[string]string),
		drivers:   make(map[string]*domain.Driver),
		shuttles:  make(map[string]*domain.Shuttle),
	}
}

func (st *state) ride(id string) (*domain.Ride, bool) {
	r, ok := st.rides[id]
	return r, ok
}

func (st *state) rideByCode(code string) (*domain.Ride, bool) {
	id, ok := st.rideCodes[code]
	if !ok {
		return nil, false
	}
	return st.ride(id)
}

func (st *state) rideByTxRef(txRef string) (*domain.Ride, bool) {
	id, ok := st.rideTx[txRef]
	if !ok {
		return nil, false
	}
	return st.ride(id)
}

func (st *state) rideIDs() []string {
	return st.rideOrder
}

func (st *state) putRide(r *domain.Ride) {
	if old, ok := st.rides[r.ID]; ok {
		if old.TxRef != "" && old.TxRef != r.TxRef {
			delete(st.rideTx, old.TxRef)
		}
	} else {
		st.rideOrder = append(st.rideOrder, r.ID)
		st.rideCodes[r.PublicCode] = r.ID
	}
	if r.TxRef != "" {
		st.rideTx[r.TxRef] = r.ID
	}
	st.rides[r.ID] = r
}

func (st *state) driver(id string) (*domain.Driver, bool) {
	d, ok := st.drivers[id]
	return d, ok
}

func (st *state) driverIDs() []string {
	ids := make([]string, 0, len(st.drivers))
	for id := range st.drivers {
		ids = append(ids, id)
	}
	return ids
}

func (st *state) putDriver(d *domain.Driver) {
	st.drivers[d.ID] = d
}

func (st *state) shuttle(id string) (*domain.Shuttle, bool) {
	s, ok := st.shuttles[id]
	return s, ok
}

func (st *state) shuttleIDs() []string {
	ids := make([]string, 0, len(st.shuttles))
	for id := range st.shuttles {
		ids = append(ids, id)
	}
	return ids
}

func (st *state) putShuttle(s *domain.Shuttle) {
	st.shuttles[s.ID] = s
}

// overlay stages the writes of one unit of work on top of committed state.
type overlay struct {
	base       *state
	rides      map[string]*domain.Ride
	newRideIDs []string
	drivers    map[string]*domain.Driver
	shuttles   map[string]*domain.Shuttle
}

func newOverlay(base *state) *overlay {
	return &overlay{
		base:     base,
		rides:    make(map[string]*domain.Ride),
		drivers:  make(map[string]*domain.Driver),
		shuttles: make(map[string]*domain.Shuttle),
	}
}

func (o *overlay) ride(id string) (*domain.Ride, bool) {
	if r, ok := o.rides[id]; ok {
		return r, true
	}
	return o.base.ride(id)
}

func (o *overlay) rideByCode(code string) (*domain.Ride, bool) {
	for _, r := range o.rides {
		if r.PublicCode == code {
			return r, true
		}
	}
	return o.base.rideByCode(code)
}

func (o *overlay) rideByTxRef(txRef string) (*domain.Ride, bool) {
	for _, r := range o.rides {
		if r.TxRef == txRef {
			return r, true
		}
	}
	r, ok := o.base.rideByTxRef(txRef)
	if !ok {
		return nil, false
	}
	if _, staged := o.rides[r.ID]; staged {
		// the staged copy carries a different reference
		return nil, false
	}
	return r, true
}

func (o *overlay) rideIDs() []string {
	if len(o.newRideIDs) == 0 {
		return o.base.rideOrder
	}
	ids := make([]string, 0, len(o.base.rideOrder)+len(o.newRideIDs))
	ids = append(ids, o.base.rideOrder...)
	return append(ids, o.newRideIDs...)
}

func (o *overlay) putRide(r *domain.Ride) {
	if _, ok := o.ride(r.ID); !ok {
		o.newRideIDs = append(o.newRideIDs, r.ID)
	}
	o.rides[r.ID] = r
}

func (o *overlay) driver(id string) (*domain.Driver, bool) {
	if d, ok := o.drivers[id]; ok {
		return d, true
	}
	return o.base.driver(id)
}

func (o *overlay) driverIDs() []string {
	ids := o.base.driverIDs()
	for id := range o.drivers {
		if _, ok := o.base.drivers[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (o *overlay) putDriver(d *domain.Driver) {
	o.drivers[d.ID] = d
}

func (o *overlay) shuttle(id string) (*domain.Shuttle, bool) {
	if s, ok := o.shuttles[id]; ok {
		return s, true
	}
	return o.base.shuttle(id)
}

func (o *overlay) shuttleIDs() []string {
	ids := o.base.shuttleIDs()
	for id := range o.shuttles {
		if _, ok := o.base.shuttles[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (o *overlay) putShuttle(s *domain.Shuttle) {
	o.shuttles[s.ID] = s
}

// commit merges staged writes into the base state. New rides are appended
// in the order they were created.
func (o *overlay) commit() {
	for _, id := range o.newRideIDs {
		o.base.putRide(o.rides[id])
	}
	for id, r := range o.rides {
		if _, ok := o.base.rides[id]; ok {
			o.base.putRide(r)
		}
	}
	for _, d := range o.drivers {
		o.base.putDriver(d)
	}
	for _, s := range o.shuttles {
		o.base.putShuttle(s)
	}
}
