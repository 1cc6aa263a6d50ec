// Package store persists donor records. Every driver enforces a unique
// contact number and returns records in insertion order.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/bloodbuddy/donor-cli/internal/model"
)

// ErrDuplicateContact is returned by InsertDonor when the contact number is
// already registered. The existing record is never overwritten.
var ErrDuplicateContact = eris.New("store: duplicate contact")

// Store defines the persistence interface for donor records.
type Store interface {
	// InsertDonor adds d and returns its generated id.
	InsertDonor(ctx context.Context, d model.Donor) (string, error)
	// ListDonors returns every donor in insertion order.
	ListDonors(ctx context.Context) ([]model.Donor, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
