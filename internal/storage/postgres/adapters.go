package postgres

import (
	"context"
	"time"

	"coinforge/internal/model"
)

const sinkTimeout = 10 * time.Second

// SnapshotStore exposes one named snapshot row as a storage.SnapshotStore.
type SnapshotStore struct {
	Store *Store
	Name  string
}

func (s *SnapshotStore) Load(ctx context.Context) (model.Snapshot, bool, error) {
	return s.Store.LoadSnapshot(ctx, s.Name)
}

func (s *SnapshotStore) Save(ctx context.Context, snap model.Snapshot) error {
	return s.Store.SaveSnapshot(ctx, s.Name, snap)
}

// SaleSink writes sale batches to the sales table.
type SaleSink struct {
	Store *Store
}

func (s *SaleSink) PutSaleBatch(sales []model.SaleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	return s.Store.InsertSales(ctx, sales)
}
