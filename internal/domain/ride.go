package domain

import (
	"fmt"
	"strings"
	"time"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "requested"
	RideStatusAssigned  RideStatus = "assigned"
	RideStatusArrived   RideStatus = "arrived"
	RideStatusInTrip    RideStatus = "in_trip"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// rideSequence is the forward lifecycle; cancelled sits outside it.
var rideSequence = []RideStatus{
	RideStatusRequested,
	RideStatusAssigned,
	RideStatusArrived,
	RideStatusInTrip,
	RideStatusCompleted,
}

// AllowedTransitions maps each status to the statuses it may move to.
var AllowedTransitions = map[RideStatus][]RideStatus{
	RideStatusRequested: {RideStatusAssigned, RideStatusCancelled},
	RideStatusAssigned:  {RideStatusArrived, RideStatusCancelled},
	RideStatusArrived:   {RideStatusInTrip, RideStatusCancelled},
	RideStatusInTrip:    {RideStatusCompleted, RideStatusCancelled},
	RideStatusCompleted: {},
	RideStatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to RideStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseRideStatus parses a status name.
func ParseRideStatus(s string) (RideStatus, error) {
	st := RideStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := AllowedTransitions[st]; !ok {
		return "", ErrUnknownRideStatus
	}
	return st, nil
}

// IsTerminal reports whether no transition leaves s.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

var statusLabels = map[RideStatus]string{
	RideStatusRequested: "Requested",
	RideStatusAssigned:  "Assigned",
	RideStatusArrived:   "Arrived",
	RideStatusInTrip:    "In trip",
	RideStatusCompleted: "Completed",
	RideStatusCancelled: "Cancelled",
}

// Label returns the customer-facing name of s.
func (s RideStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Progress returns the trip progress percentage shown in the tracking
// stepper. Cancelled rides report 0.
func (s RideStatus) Progress() int {
	for i, st := range rideSequence {
		if st == s {
			return (i + 1) * 100 / len(rideSequence)
		}
	}
	return 0
}

// Assignment binds a ride to a driver or to a shuttle seat, never both.
type Assignment struct {
	DriverID   string
	ShuttleID  string
	Seat       int
	ETAMin     int
	AssignedAt time.Time
}

// IsShuttle reports whether the ride rides a shuttle.
func (a *Assignment) IsShuttle() bool {
	return a != nil && a.ShuttleID != ""
}

// ClampETA returns eta raised to at least one minute.
func ClampETA(eta int) int {
	if eta < 1 {
		return 1
	}
	return eta
}

// Ride represents a ride request in the system.
type Ride struct {
	ID                string
	PublicCode        string
	VehicleClass      VehicleClass
	Pickup            string
	Dropoff           string
	Note              string
	EstimatedFare     int64
	DistanceKm        float64
	DurationMin       float64
	PricingSnapshotID string
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	TxRef             string
	Status            RideStatus
	Assignment        *Assignment
	CashConfirmed     bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       time.Time
	CancelledAt       time.Time
	Version           int64
}

// ValidateLocations checks that pickup and dropoff are present and differ,
// comparing trimmed and case-folded.
func ValidateLocations(pickup, dropoff string) error {
	p := strings.TrimSpace(pickup)
	d := strings.TrimSpace(dropoff)
	if p == "" || d == "" {
		return ErrEmptyLocation
	}
	if strings.EqualFold(p, d) {
		return ErrSameLocation
	}
	return nil
}

// CheckAssignable reports whether the ride can take an assignment now.
func (r *Ride) CheckAssignable() error {
	if r.Status == RideStatusRequested {
		return nil
	}
	if r.Assignment != nil && !r.Status.IsTerminal() {
		return ErrRideAlreadyAssigned
	}
	return fmt.Errorf("%w: cannot assign a %s ride", ErrInvalidTransition, r.Status)
}

// AssignDriver records a private driver assignment.
func (r *Ride) AssignDriver(driverID string, etaMin int, now time.Time) error {
	if err := r.CheckAssignable(); err != nil {
		return err
	}
	if r.VehicleClass != VehicleClassCar {
		return ErrVehicleClassMismatch
	}
	r.Assignment = &Assignment{DriverID: driverID, ETAMin: ClampETA(etaMin), AssignedAt: now}
	r.Status = RideStatusAssigned
	r.UpdatedAt = now
	return nil
}

// AssignShuttle records a seat on a shuttle run.
func (r *Ride) AssignShuttle(shuttleID string, seat, etaMin int, now time.Time) error {
	if err := r.CheckAssignable(); err != nil {
		return err
	}
	if r.VehicleClass != VehicleClassBus {
		return ErrVehicleClassMismatch
	}
	r.Assignment = &Assignment{ShuttleID: shuttleID, Seat: seat, ETAMin: ClampETA(etaMin), AssignedAt: now}
	r.Status = RideStatusAssigned
	r.UpdatedAt = now
	return nil
}

// Advance moves the ride to the immediate successor status. Advancing to
// cancelled behaves like Cancel.
func (r *Ride) Advance(to RideStatus, now time.Time) error {
	if to == RideStatusCancelled {
		_, err := r.Cancel(now)
		return err
	}
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	if to == RideStatusAssigned && r.Assignment == nil {
		return ErrAssignmentRequired
	}
	if to == RideStatusCompleted && r.PaymentMethod == PaymentMethodGateway && r.PaymentStatus != PaymentStatusSuccess {
		return ErrGatewayPaymentPending
	}

	r.Status = to
	r.UpdatedAt = now
	if to == RideStatusCompleted {
		r.CompletedAt = now
	}
	return nil
}

// Cancel cancels a non-terminal ride. It reports false when the ride was
// already cancelled.
func (r *Ride) Cancel(now time.Time) (bool, error) {
	switch r.Status {
	case RideStatusCancelled:
		return false, nil
	case RideStatusCompleted:
		return false, ErrRideTerminal
	}
	r.Status = RideStatusCancelled
	r.CancelledAt = now
	r.UpdatedAt = now
	return true, nil
}

// ConfirmCashPaid marks a cash ride as paid. Completed rides still accept it.
func (r *Ride) ConfirmCashPaid(now time.Time) error {
	if r.PaymentMethod != PaymentMethodCash {
		return ErrNotCashRide
	}
	if r.Status == RideStatusCancelled {
		return ErrRideTerminal
	}
	if !r.CashConfirmed {
		r.CashConfirmed = true
		r.UpdatedAt = now
	}
	return nil
}

// AttachTxRef stores a freshly initiated gateway transaction.
func (r *Ride) AttachTxRef(txRef string, now time.Time) error {
	if r.PaymentMethod != PaymentMethodGateway {
		return ErrNotGatewayRide
	}
	if r.PaymentStatus == PaymentStatusSuccess {
		return ErrPaymentSettled
	}
	if r.Status.IsTerminal() {
		return ErrRideTerminal
	}
	r.TxRef = txRef
	r.PaymentStatus = PaymentStatusPending
	r.UpdatedAt = now
	return nil
}

// RecordGatewayResult applies a payment outcome from the gateway. A
// successful payment is final: repeating success is a no-op and a later
// failure is rejected.
func (r *Ride) RecordGatewayResult(txRef string, succeeded bool, now time.Time) error {
	if r.PaymentMethod != PaymentMethodGateway {
		return ErrNotGatewayRide
	}
	if r.PaymentStatus == PaymentStatusSuccess {
		if succeeded {
			return nil
		}
		return ErrPaymentSettled
	}

	if txRef != "" {
		r.TxRef = txRef
	}
	if succeeded {
		r.PaymentStatus = PaymentStatusSuccess
	} else {
		r.PaymentStatus = PaymentStatusFailed
	}
	r.UpdatedAt = now
	return nil
}

// SwitchToCash moves an unpaid gateway ride to cash.
func (r *Ride) SwitchToCash(now time.Time) error {
	if r.PaymentMethod == PaymentMethodCash {
		return nil
	}
	if r.Status.IsTerminal() {
		return ErrRideTerminal
	}
	if r.PaymentStatus == PaymentStatusSuccess {
		return ErrPaymentSettled
	}
	r.PaymentMethod = PaymentMethodCash
	r.PaymentStatus = PaymentStatusNotApplicable
	r.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of r.
func (r *Ride) Clone() *Ride {
	c := *r
	if r.Assignment != nil {
		a := *r.Assignment
		c.Assignment = &a
	}
	return &c
}
