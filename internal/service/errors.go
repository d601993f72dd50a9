package service

import (
	"fmt"

	"instantride/internal/domain"
)

var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = fmt.Errorf("%w: ride id is required", domain.ErrInvalidInput)

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = fmt.Errorf("%w: driver id is required", domain.ErrInvalidInput)

	// ErrInvalidShuttleID is returned when shuttle ID is empty.
	ErrInvalidShuttleID = fmt.Errorf("%w: shuttle id is required", domain.ErrInvalidInput)

	// ErrInvalidTxRef is returned when a payment callback carries no reference.
	ErrInvalidTxRef = fmt.Errorf("%w: transaction reference is required", domain.ErrInvalidInput)

	// ErrDriverNameRequired is returned when registering a driver without a name.
	ErrDriverNameRequired = fmt.Errorf("%w: driver name is required", domain.ErrInvalidInput)

	// ErrNoRoute is returned when the route provider cannot estimate a trip.
	ErrNoRoute = fmt.Errorf("%w: route could not be estimated", domain.ErrInvalidInput)

	// ErrFareOutOfRange is returned when a fare does not fit in a money amount.
	ErrFareOutOfRange = fmt.Errorf("%w: fare out of range", domain.ErrInvalidInput)

	// ErrNoPricing is returned when a class has no active pricing rule.
	ErrNoPricing = fmt.Errorf("%w: no active pricing for vehicle class", domain.ErrInvalidState)

	// ErrNoDriverAvailable is returned when no driver can be matched.
	ErrNoDriverAvailable = fmt.Errorf("%w: no driver available", domain.ErrCapacity)

	// ErrNoShuttleAvailable is returned when no shuttle has a free seat.
	ErrNoShuttleAvailable = fmt.Errorf("%w: no shuttle available", domain.ErrCapacity)

	// ErrRideBusy is returned when another dispatcher holds the ride.
	ErrRideBusy = fmt.Errorf("%w: ride is being dispatched", domain.ErrConflict)

	// ErrTargetBusy is returned when another dispatcher holds the driver or shuttle.
	ErrTargetBusy = fmt.Errorf("%w: driver or shuttle is being dispatched", domain.ErrConflict)

	// ErrPaymentUnconfirmed is returned when a callback reports an outcome
	// the gateway does not confirm.
	ErrPaymentUnconfirmed = fmt.Errorf("%w: gateway does not confirm the reported payment outcome", domain.ErrConflict)

	// ErrGatewayUnavailable is returned when the payment gateway call fails.
	ErrGatewayUnavailable = fmt.Errorf("%w: payment gateway unavailable", domain.ErrPaymentIncomplete)
)
