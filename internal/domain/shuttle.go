package domain

import (
	"strings"
	"time"
)

// ShuttleStatus represents the state of a shuttle run.
type ShuttleStatus string

const (
	ShuttleStatusActive ShuttleStatus = "active"
	ShuttleStatusFull   ShuttleStatus = "full"
	ShuttleStatusEnded  ShuttleStatus = "ended"
)

// Shuttle is a shared bus run along an ordered list of junctions.
// Filled always equals len(AcceptedRideIDs) and never exceeds Capacity.
// Seats[i] is the zero-based seat held by AcceptedRideIDs[i]; a seat is
// held by at most one ride and keeps its number until released.
type Shuttle struct {
	ID              string
	DriverID        string
	Capacity        int
	Filled          int
	Junctions       []string
	JunctionIndex   int
	Status          ShuttleStatus
	AcceptedRideIDs []string
	Seats           []int
	UpdatedAt       time.Time
	Version         int64
}

// NewShuttle validates and builds an active shuttle run.
func NewShuttle(id, driverID string, capacity int, junctions []string, now time.Time) (*Shuttle, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	stops := make([]string, 0, len(junctions))
	for _, j := range junctions {
		if j = strings.TrimSpace(j); j != "" {
			stops = append(stops, j)
		}
	}
	if len(stops) == 0 {
		return nil, ErrNoJunctions
	}
	s := &Shuttle{
		ID:        id,
		DriverID:  driverID,
		Capacity:  capacity,
		Junctions: stops,
		Status:    ShuttleStatusActive,
		UpdatedAt: now,
	}
	if len(stops) == 1 {
		s.Status = ShuttleStatusEnded
	}
	return s, nil
}

// CurrentJunction returns the stop the shuttle is at.
func (s *Shuttle) CurrentJunction() string {
	return s.Junctions[s.JunctionIndex]
}

// FinalDestination returns the last stop of the run.
func (s *Shuttle) FinalDestination() string {
	return s.Junctions[len(s.Junctions)-1]
}

// IsFull reports whether every seat is taken.
func (s *Shuttle) IsFull() bool {
	return s.Filled >= s.Capacity
}

// SeatsLeft returns the number of free seats.
func (s *Shuttle) SeatsLeft() int {
	return s.Capacity - s.Filled
}

// StopsUntil returns how many junctions ahead the named stop is, comparing
// case-insensitively, or -1 when the run does not reach it.
func (s *Shuttle) StopsUntil(junction string) int {
	name := strings.TrimSpace(junction)
	for i := s.JunctionIndex; i < len(s.Junctions); i++ {
		if strings.EqualFold(s.Junctions[i], name) {
			return i - s.JunctionIndex
		}
	}
	return -1
}

// AcceptRide seats a ride on the lowest free seat and returns its
// zero-based index. Seating a ride that already holds a seat returns that
// seat.
func (s *Shuttle) AcceptRide(rideID string, now time.Time) (int, error) {
	if seat, ok := s.SeatOf(rideID); ok {
		return seat, nil
	}
	if s.Status == ShuttleStatusEnded {
		return 0, ErrShuttleEnded
	}
	if s.IsFull() {
		return 0, ErrShuttleFull
	}

	seat := s.lowestFreeSeat()
	s.AcceptedRideIDs = append(s.AcceptedRideIDs, rideID)
	s.Seats = append(s.Seats, seat)
	s.Filled = len(s.AcceptedRideIDs)
	if s.IsFull() {
		s.Status = ShuttleStatusFull
	}
	s.UpdatedAt = now
	return seat, nil
}

// SeatOf returns the seat held by rideID.
func (s *Shuttle) SeatOf(rideID string) (int, bool) {
	for i, id := range s.AcceptedRideIDs {
		if id == rideID {
			return s.Seats[i], true
		}
	}
	return 0, false
}

func (s *Shuttle) lowestFreeSeat() int {
	taken := make(map[int]bool, len(s.Seats))
	for _, seat := range s.Seats {
		taken[seat] = true
	}
	seat := 0
	for taken[seat] {
		seat++
	}
	return seat
}

// ReleaseRide frees the seat held by rideID. It reports whether a seat was
// released; releasing an unknown ride is a no-op.
func (s *Shuttle) ReleaseRide(rideID string, now time.Time) bool {
	for i, id := range s.AcceptedRideIDs {
		if id != rideID {
			continue
		}
		s.AcceptedRideIDs = append(s.AcceptedRideIDs[:i:i], s.AcceptedRideIDs[i+1:]...)
		s.Seats = append(s.Seats[:i:i], s.Seats[i+1:]...)
		s.Filled = len(s.AcceptedRideIDs)
		if s.Status == ShuttleStatusFull {
			s.Status = ShuttleStatusActive
		}
		s.UpdatedAt = now
		return true
	}
	return false
}

// AdvanceJunction moves to the next stop, ending the run at the last one.
// It is a no-op once the run has ended.
func (s *Shuttle) AdvanceJunction(now time.Time) {
	last := len(s.Junctions) - 1
	if s.JunctionIndex < last {
		s.JunctionIndex++
		s.UpdatedAt = now
	}
	if s.JunctionIndex == last && s.Status != ShuttleStatusEnded {
		s.Status = ShuttleStatusEnded
		s.UpdatedAt = now
	}
}

// Clone returns a deep copy of s.
func (s *Shuttle) Clone() *Shuttle {
	c := *s
	c.Junctions = append([]string(nil), s.Junctions...)
	c.AcceptedRideIDs = append([]string(nil), s.AcceptedRideIDs...)
	c.Seats = append([]int(nil), s.Seats...)
	return &c
}
