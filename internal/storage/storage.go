package storage

import (
	"context"

	"coinforge/internal/model"
)

// SaleSink receives drained sale records.
type SaleSink interface {
	PutSaleBatch(sales []model.SaleRecord) error
}

// SnapshotStore persists a single game snapshot. Load reports false when no
// snapshot exists; a failed Save must leave any earlier snapshot intact.
type SnapshotStore interface {
	Load(ctx context.Context) (model.Snapshot, bool, error)
	Save(ctx context.Context, snap model.Snapshot) error
}
