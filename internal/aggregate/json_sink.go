package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"coinforge/internal/model"
)

// JSONSink writes each window as one JSON line, for runs without a database.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) UpsertWindowMetrics(ctx context.Context, metrics []model.SaleWindowMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range metrics {
		if err := s.enc.Encode(m); err != nil {
			return fmt.Errorf("encode window metrics: %w", err)
		}
	}
	return nil
}
