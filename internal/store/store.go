// Package store provides the relational ride store. PostgreSQL is the
// production backend; the RideStore interface keeps the cache layer and the
// HTTP handlers independent of the driver.
package store

import (
	"context"
	"fmt"

	"github.com/rosy/taxirides/internal/domain"
)

// ConstraintError reports a write rejected by a store constraint, such as
// inserting a ride whose id already exists. Handlers surface it as a client
// error with the underlying cause message.
type ConstraintError struct {
	cause error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("store: constraint violation: %v", e.cause)
}

func (e *ConstraintError) Unwrap() error { return e.cause }

// RideStore is the durable ride store.
type RideStore interface {
	// List returns up to limit rides of one kind in insertion order,
	// optionally filtered by passenger count.
	List(ctx context.Context, kind domain.Kind, passengerCount *int, limit int) ([]domain.Ride, error)

	// GetByID returns the ride with the given id, or domain.ErrNotFound.
	GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Ride, error)

	// Insert stores a fully-specified ride. A duplicate id yields a
	// *ConstraintError.
	Insert(ctx context.Context, kind domain.Kind, ride *domain.Ride) error

	// Update applies the non-nil fields of upd to the ride with the given
	// id. Returns domain.ErrNotFound if no such ride exists.
	Update(ctx context.Context, kind domain.Kind, id string, upd *domain.RideUpdate) error

	// Delete removes the ride with the given id. Returns
	// domain.ErrNotFound if no such ride exists.
	Delete(ctx context.Context, kind domain.Kind, id string) error

	Ping(ctx context.Context) error
	Close() error
}
