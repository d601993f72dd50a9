package domain

import (
	"strings"
	"time"
)

// PaymentMethod represents how a ride is paid.
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodGateway PaymentMethod = "gateway"
)

// ParsePaymentMethod parses a payment method. "flutterwave" is accepted as
// the gateway provider's name.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PaymentMethodCash):
		return PaymentMethodCash, nil
	case string(PaymentMethodGateway), "flutterwave":
		return PaymentMethodGateway, nil
	}
	return "", ErrUnknownPaymentMethod
}

// PaymentStatus represents the gateway payment state of a ride.
type PaymentStatus string

const (
	PaymentStatusNotApplicable PaymentStatus = "n/a"
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusSuccess       PaymentStatus = "success"
	PaymentStatusFailed        PaymentStatus = "failed"
)

// PaymentRecord is the payments view of a gateway ride.
type PaymentRecord struct {
	RideID     string
	PublicCode string
	Amount     int64
	TxRef      string
	Status     PaymentStatus
	CreatedAt  time.Time
}
