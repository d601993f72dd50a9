package domain

import "time"

// DriverStatus represents the dispatch status of a driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
)

// Valid reports whether s is a known driver status.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverStatusAvailable, DriverStatusBusy, DriverStatusOffline:
		return true
	}
	return false
}

// Driver represents a driver in the dispatch pool.
type Driver struct {
	ID           string
	Name         string
	Contact      string // phone number, or tg:<chat id> for Telegram delivery
	VehicleClass VehicleClass
	Vehicle      string
	Plate        string
	Status       DriverStatus
	UpdatedAt    time.Time
	Version      int64
}

// IsAvailable reports whether the driver can take a new ride.
func (d *Driver) IsAvailable() bool {
	return d.Status == DriverStatusAvailable
}
