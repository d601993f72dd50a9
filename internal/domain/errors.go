package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the engine matches at least one of
// these through errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrCapacity          = errors.New("capacity exhausted")
	ErrPaymentIncomplete = errors.New("payment incomplete")
)

var (
	// ErrUnknownVehicleClass is returned for a class other than car or bus.
	ErrUnknownVehicleClass = fmt.Errorf("%w: unknown vehicle class", ErrInvalidInput)

	// ErrUnknownPaymentMethod is returned for a method other than cash or gateway.
	ErrUnknownPaymentMethod = fmt.Errorf("%w: unknown payment method", ErrInvalidInput)

	// ErrUnknownRideStatus is returned when a status string cannot be parsed.
	ErrUnknownRideStatus = fmt.Errorf("%w: unknown ride status", ErrInvalidInput)

	// ErrEmptyLocation is returned when pickup or dropoff is blank.
	ErrEmptyLocation = fmt.Errorf("%w: pickup and dropoff are required", ErrInvalidInput)

	// ErrSameLocation is returned when pickup and dropoff name the same place.
	ErrSameLocation = fmt.Errorf("%w: pickup and dropoff must differ", ErrInvalidInput)

	// ErrNegativeTrip is returned for a negative or non-finite distance or duration.
	ErrNegativeTrip = fmt.Errorf("%w: distance and duration must be non-negative", ErrInvalidInput)

	// ErrInvalidPricingRule is returned when a pricing field is negative or not a number.
	ErrInvalidPricingRule = fmt.Errorf("%w: pricing fields must be non-negative numbers", ErrInvalidInput)

	// ErrQuoteMismatch is returned when a quote does not belong to the requested ride.
	ErrQuoteMismatch = fmt.Errorf("%w: quote does not match ride", ErrInvalidInput)

	// ErrVehicleClassMismatch is returned when a driver or shuttle serves another class.
	ErrVehicleClassMismatch = fmt.Errorf("%w: vehicle class does not match ride", ErrInvalidInput)

	// ErrInvalidCapacity is returned for a shuttle without seats.
	ErrInvalidCapacity = fmt.Errorf("%w: shuttle capacity must be positive", ErrInvalidInput)

	// ErrNoJunctions is returned for a shuttle route without stops.
	ErrNoJunctions = fmt.Errorf("%w: shuttle route needs at least one junction", ErrInvalidInput)

	// ErrInvalidDriverStatus is returned when a manual status change targets busy.
	ErrInvalidDriverStatus = fmt.Errorf("%w: driver status must be available or offline", ErrInvalidInput)
)

var (
	// ErrInvalidTransition is returned when the target status is not a legal successor.
	ErrInvalidTransition = fmt.Errorf("%w: illegal status transition", ErrInvalidState)

	// ErrRideTerminal is returned when a completed or cancelled ride is mutated.
	ErrRideTerminal = fmt.Errorf("%w: ride is completed or cancelled", ErrInvalidState)

	// ErrAssignmentRequired is returned when advancing to assigned without dispatch.
	ErrAssignmentRequired = fmt.Errorf("%w: ride must be assigned through dispatch", ErrInvalidState)

	// ErrNotCashRide is returned when confirming cash on a non-cash ride.
	ErrNotCashRide = fmt.Errorf("%w: ride is not paid in cash", ErrInvalidState)

	// ErrShuttleEnded is returned when seating a ride on a finished run.
	ErrShuttleEnded = fmt.Errorf("%w: shuttle run has ended", ErrInvalidState)

	// ErrDriverOnRide is returned when a busy driver is changed by hand.
	ErrDriverOnRide = fmt.Errorf("%w: driver is serving a ride", ErrInvalidState)

	// ErrPublicCodeExhausted is returned when no unused public code could be drawn.
	ErrPublicCodeExhausted = fmt.Errorf("%w: could not allocate a unique ride code", ErrInvalidState)
)

var (
	// ErrDriverUnavailable is returned when the target driver is not available.
	ErrDriverUnavailable = fmt.Errorf("%w: driver is not available", ErrConflict)

	// ErrNotGatewayRide is returned when a gateway result arrives for a non-gateway ride.
	ErrNotGatewayRide = fmt.Errorf("%w: ride is not paid through the gateway", ErrConflict)

	// ErrPaymentSettled is returned when a successful payment would be overwritten.
	ErrPaymentSettled = fmt.Errorf("%w: payment already settled", ErrConflict)

	// ErrRideAlreadyAssigned is returned when another dispatcher assigned the
	// ride first. It is a lost race and an illegal state at the same time.
	ErrRideAlreadyAssigned error = &kindError{
		msg:   "ride already assigned",
		kinds: []error{ErrConflict, ErrInvalidState},
	}
)

var (
	// ErrShuttleFull is returned when every seat is taken. Dispatch sees it
	// as a conflict on the target shuttle.
	ErrShuttleFull error = &kindError{
		msg:   "capacity exhausted: shuttle is full",
		kinds: []error{ErrCapacity, ErrConflict},
	}

	// ErrGatewayPaymentPending blocks completion of an unpaid gateway ride.
	ErrGatewayPaymentPending = fmt.Errorf("%w: gateway payment has not succeeded", ErrPaymentIncomplete)
)

// kindError is an error that belongs to more than one kind.
type kindError struct {
	msg   string
	kinds []error
}

func (e *kindError) Error() string   { return e.msg }
func (e *kindError) Unwrap() []error { return e.kinds }
