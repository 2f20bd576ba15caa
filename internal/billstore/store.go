// Package billstore persists bills and answers duplicate lookups.
package billstore

import (
	"context"
	"errors"

	"github.com/flateze/flateze/internal/model"
)

// ErrDuplicate is returned by CreateBill when a bill with the same
// dedupe key already exists for the flat.
var ErrDuplicate = errors.New("duplicate bill")

// Store is the persistence boundary used by ingestion.
type Store interface {
	// FindDuplicate returns the bill matching key, or nil when none exists.
	FindDuplicate(ctx context.Context, key model.DedupeKey) (*model.Bill, error)
	// CreateBill persists bill and returns it with ID and CreatedAt set.
	CreateBill(ctx context.Context, bill model.Bill) (*model.Bill, error)
}
