package domain

import "strings"

// VehicleClass is the kind of vehicle a ride needs.
type VehicleClass string

const (
	// VehicleClassCar is a private ride dispatched to one driver.
	VehicleClassCar VehicleClass = "car"
	// VehicleClassBus is a seat on a shared shuttle run.
	VehicleClassBus VehicleClass = "bus"
)

// VehicleClasses lists every supported class in display order.
var VehicleClasses = []VehicleClass{VehicleClassCar, VehicleClassBus}

// Valid reports whether c is a supported class.
func (c VehicleClass) Valid() bool {
	return c == VehicleClassCar || c == VehicleClassBus
}

// ParseVehicleClass parses a class name, ignoring case and surrounding space.
func ParseVehicleClass(s string) (VehicleClass, error) {
	c := VehicleClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownVehicleClass
	}
	return c, nil
}
