package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"coinforge/internal/model"
)

const base = int64(60_000 * 28_333_333)

type memorySink struct {
	calls   int
	metrics []model.SaleWindowMetrics
}

func (m *memorySink) UpsertWindowMetrics(_ context.Context, metrics []model.SaleWindowMetrics) error {
	m.calls++
	m.metrics = append(m.metrics, metrics...)
	return nil
}

func writeLedger(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.jsonl")
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write ledger: %v", err)
	}
	return path
}

func saleLine(t *testing.T, r model.SaleRecord) string {
	t.Helper()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func sampleLedger(t *testing.T) string {
	return writeLedger(t,
		saleLine(t, model.SaleRecord{SessionID: "s1", Level: 1, Price: 10, Quantity: 2, Amplification: 1, Timestamp: base + 1000}),
		saleLine(t, model.SaleRecord{SessionID: "s2", Level: 1, Price: 14, Quantity: 1, Amplification: 1, Timestamp: base + 5000}),
		saleLine(t, model.SaleRecord{SessionID: "s1", Level: 2, Price: 20, Quantity: 3, Amplification: 2, Timestamp: base + 2000}),
		"oops",
		"",
		saleLine(t, model.SaleRecord{SessionID: "s1", Level: 1, Price: 12, Quantity: 1, Amplification: 1, Timestamp: base + 61_000}),
	)
}

func window(level int, start int64, count uint64, qty, volume int64, minP, maxP int, sessions int) model.SaleWindowMetrics {
	return model.SaleWindowMetrics{
		Level:          level,
		WindowSizeSecs: 60,
		WindowStart:    time.UnixMilli(start).UTC(),
		WindowEnd:      time.UnixMilli(start + 60_000).UTC(),
		SaleCount:      count,
		Quantity:       qty,
		Volume:         volume,
		MinPrice:       minP,
		MaxPrice:       maxP,
		AvgPrice:       float64(volume) / float64(qty),
		Sessions:       sessions,
	}
}

func TestAggregatorBuildsWindows(t *testing.T) {
	path := sampleLedger(t)
	sink := &memorySink{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}

	agg := NewAggregator(Config{Window: time.Minute, StateStore: state}, sink, nil)
	if err := agg.Run(context.Background(), path); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []model.SaleWindowMetrics{
		window(1, base, 2, 3, 34, 10, 14, 2),
		window(1, base+60_000, 1, 1, 12, 12, 12, 1),
		window(2, base, 1, 3, 60, 20, 20, 1),
	}
	if !reflect.DeepEqual(sink.metrics, want) {
		t.Fatalf("metrics mismatch:\n%+v\n%+v", sink.metrics, want)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != base+61_000 {
		t.Fatalf("state = %d ok=%v err=%v", last, ok, err)
	}

	again := &memorySink{}
	if err := NewAggregator(Config{Window: time.Minute, StateStore: state}, again, nil).Run(context.Background(), path); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.calls != 0 {
		t.Fatalf("rerun wrote %d batches", again.calls)
	}
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	path := sampleLedger(t)
	sink := &memorySink{}
	agg := NewAggregator(Config{Window: time.Minute, RecomputeFrom: base + 61_000}, sink, nil)
	if err := agg.Run(context.Background(), path); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []model.SaleWindowMetrics{window(1, base+60_000, 1, 1, 12, 12, 12, 1)}
	if !reflect.DeepEqual(sink.metrics, want) {
		t.Fatalf("metrics mismatch:\n%+v\n%+v", sink.metrics, want)
	}
}

func TestAggregatorRejectsShortWindow(t *testing.T) {
	agg := NewAggregator(Config{Window: 10 * time.Millisecond}, &memorySink{}, nil)
	if err := agg.Run(context.Background(), sampleLedger(t)); err == nil {
		t.Fatalf("expected window error")
	}
}

func TestJSONSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf)
	metrics := []model.SaleWindowMetrics{window(1, base, 1, 1, 12, 12, 12, 1), window(2, base, 1, 3, 60, 20, 20, 1)}
	if err := sink.UpsertWindowMetrics(context.Background(), metrics); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var got model.SaleWindowMetrics
	if err := json.Unmarshal(lines[1], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, metrics[1]) {
		t.Fatalf("decoded mismatch: %+v != %+v", got, metrics[1])
	}
}
