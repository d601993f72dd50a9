package repository

import (
	"errors"
	"fmt"

	"instantride/internal/domain"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an entity with the same key already exists.
	ErrDuplicate = fmt.Errorf("%w: entity already exists", domain.ErrConflict)

	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = fmt.Errorf("%w: entity was modified concurrently", domain.ErrConflict)
)
