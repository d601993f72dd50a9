package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"instantride/internal/domain"
	"instantride/internal/logger"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideBooked     NotificationType = "RIDE_BOOKED"
	NotificationDriverAssigned NotificationType = "DRIVER_ASSIGNED"
	NotificationSeatAssigned   NotificationType = "SEAT_ASSIGNED"
	NotificationStatusChanged  NotificationType = "STATUS_CHANGED"
	NotificationRideCancelled  NotificationType = "RIDE_CANCELLED"
	NotificationPaymentSuccess NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed  NotificationType = "PAYMENT_FAILED"
)

// RideSummary is what a driver is told about a ride.
type RideSummary struct {
	Type         NotificationType `json:"type"`
	RideID       string           `json:"ride_id"`
	PublicCode   string           `json:"public_code"`
	VehicleClass string           `json:"vehicle_class"`
	Pickup       string           `json:"pickup"`
	Dropoff      string           `json:"dropoff"`
	Note         string           `json:"note,omitempty"`
	Fare         int64            `json:"fare"`
	Payment      string           `json:"payment_method"`
	Status       string           `json:"status"`
	ETAMin       int              `json:"eta_min,omitempty"`
	Seat         int              `json:"seat,omitempty"` // one-based, 0 without a seat
}

// Notifier delivers messages on one channel. Implementations may block on
// I/O; NotificationService never calls them on the request path.
type Notifier interface {
	NotifyDriver(ctx context.Context, driverID string, summary RideSummary) error
	NotifyCustomer(ctx context.Context, rideID string, message string) error
}

const notifyTimeout = 10 * time.Second

// NotificationService fans ride events out to every configured channel.
// Delivery is asynchronous; failures are logged and dropped.
type NotificationService struct {
	notifiers []Notifier
	log       logger.ILogger
	wg        sync.WaitGroup
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log logger.ILogger, notifiers ...Notifier) *NotificationService {
	return &NotificationService{notifiers: notifiers, log: log}
}

// Wait blocks until every in-flight delivery has finished.
func (s *NotificationService) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// RideBooked tells the customer their booking went through.
func (s *NotificationService) RideBooked(ride *domain.Ride) {
	s.customer(ride.ID, NotificationRideBooked,
		fmt.Sprintf("Ride %s booked: %s to %s, fare %s.", ride.PublicCode, ride.Pickup, ride.Dropoff, FormatNaira(ride.EstimatedFare)))
}

// DriverAssigned notifies both parties of a private assignment.
func (s *NotificationService) DriverAssigned(ride *domain.Ride, driver *domain.Driver) {
	s.driver(driver.ID, summarize(NotificationDriverAssigned, ride))
	s.customer(ride.ID, NotificationDriverAssigned,
		fmt.Sprintf("%s is on the way in a %s (%s). ETA %d min.", driver.Name, driver.Vehicle, driver.Plate, ride.Assignment.ETAMin))
}

// SeatAssigned notifies the shuttle driver and the customer of a seat.
func (s *NotificationService) SeatAssigned(ride *domain.Ride, shuttle *domain.Shuttle) {
	s.driver(shuttle.DriverID, summarize(NotificationSeatAssigned, ride))
	s.customer(ride.ID, NotificationSeatAssigned,
		fmt.Sprintf("Seat %d reserved on shuttle %s, now at %s. ETA %d min.",
			ride.Assignment.Seat+1, shuttle.ID, shuttle.CurrentJunction(), ride.Assignment.ETAMin))
}

// StatusChanged tells the customer the ride moved on.
func (s *NotificationService) StatusChanged(ride *domain.Ride) {
	s.customer(ride.ID, NotificationStatusChanged,
		fmt.Sprintf("Ride %s: %s.", ride.PublicCode, ride.Status.Label()))
	if ride.Status == domain.RideStatusCompleted {
		if id := assignedDriver(ride); id != "" {
			s.driver(id, summarize(NotificationStatusChanged, ride))
		}
	}
}

// RideCancelled tells both parties a ride was cancelled. driverID is the
// driver that was released, if any.
func (s *NotificationService) RideCancelled(ride *domain.Ride, driverID string) {
	s.customer(ride.ID, NotificationRideCancelled, fmt.Sprintf("Ride %s was cancelled.", ride.PublicCode))
	if driverID != "" {
		s.driver(driverID, summarize(NotificationRideCancelled, ride))
	}
}

// PaymentResult tells the customer how their gateway payment went.
func (s *NotificationService) PaymentResult(ride *domain.Ride) {
	switch ride.PaymentStatus {
	case domain.PaymentStatusSuccess:
		s.customer(ride.ID, NotificationPaymentSuccess,
			fmt.Sprintf("Payment of %s for ride %s received.", FormatNaira(ride.EstimatedFare), ride.PublicCode))
	case domain.PaymentStatusFailed:
		s.customer(ride.ID, NotificationPaymentFailed,
			fmt.Sprintf("Payment for ride %s failed. Retry or switch to cash.", ride.PublicCode))
	}
}

func (s *NotificationService) driver(driverID string, summary RideSummary) {
	s.dispatch(string(summary.Type), func(ctx context.Context, n Notifier) error {
		return n.NotifyDriver(ctx, driverID, summary)
	})
}

func (s *NotificationService) customer(rideID string, typ NotificationType, message string) {
	s.dispatch(string(typ), func(ctx context.Context, n Notifier) error {
		return n.NotifyCustomer(ctx, rideID, message)
	})
}

func (s *NotificationService) dispatch(event string, send func(ctx context.Context, n Notifier) error) {
	if s == nil {
		return
	}
	for _, n := range s.notifiers {
		s.wg.Add(1)
		go func(n Notifier) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := send(ctx, n); err != nil {
				s.log.Warning("notification delivery failed",
					logger.String("event", event),
					logger.String("channel", fmt.Sprintf("%T", n)),
					logger.Error(err),
				)
			}
		}(n)
	}
}

func summarize(typ NotificationType, ride *domain.Ride) RideSummary {
	sum := RideSummary{
		Type:         typ,
		RideID:       ride.ID,
		PublicCode:   ride.PublicCode,
		VehicleClass: string(ride.VehicleClass),
		Pickup:       ride.Pickup,
		Dropoff:      ride.Dropoff,
		Note:         ride.Note,
		Fare:         ride.EstimatedFare,
		Payment:      string(ride.PaymentMethod),
		Status:       string(ride.Status),
	}
	if a := ride.Assignment; a != nil {
		sum.ETAMin = a.ETAMin
		if a.IsShuttle() {
			sum.Seat = a.Seat + 1
		}
	}
	return sum
}

func assignedDriver(ride *domain.Ride) string {
	if ride.Assignment == nil {
		return ""
	}
	return ride.Assignment.DriverID
}

// FormatNaira renders a whole-naira amount with thousands separators.
func FormatNaira(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + "₦" + string(out)
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	log logger.ILogger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(log logger.ILogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyDriver(_ context.Context, driverID string, summary RideSummary) error {
	n.log.Info("driver notification",
		logger.String("type", string(summary.Type)),
		logger.String("driver_id", driverID),
		logger.String("ride_code", summary.PublicCode),
		logger.String("pickup", summary.Pickup),
		logger.Int64("fare", summary.Fare),
	)
	return nil
}

func (n *LogNotifier) NotifyCustomer(_ context.Context, rideID string, message string) error {
	n.log.Info("customer notification",
		logger.String("ride_id", rideID),
		logger.String("message", message),
	)
	return nil
}
