// Package database persists engine snapshots and the event journal.
package database

import (
	"context"

	"github.com/Alias1177/FixPredict/internal/engine"
	"github.com/Alias1177/FixPredict/models"
)

// Store loads and saves engine state. Save writes the snapshot together with
// the events committed since the previous save.
type Store interface {
	// Load returns the latest snapshot, or nil when nothing was saved yet.
	Load(ctx context.Context) (*engine.Snapshot, error)
	Save(ctx context.Context, snap *engine.Snapshot, events []models.Event) error
	Close() error
}

// Journal reads back the events Save appended, in commit order.
type Journal interface {
	// Events returns up to limit events at or above height since, oldest
	// first. A non-positive limit reads everything.
	Events(ctx context.Context, since uint64, limit int) ([]models.Event, error)
}
