package repository

import "context"

// Repositories groups the aggregate repositories that take part in one unit
// of work.
type Repositories interface {
	Rides() RideRepository
	Drivers() DriverRepository
	Shuttles() ShuttleRepository
}

// Store is the persistence root handed to services.
type Store interface {
	Repositories

	Pricing() PricingRepository

	// WithinTx runs fn as one atomic unit of work. Writes made through tx
	// become visible together when fn returns nil and are discarded
	// otherwise. fn must only use tx, never the Store itself.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
