package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"coinforge/internal/model"
)

// JsonlStorage writes sale records to a JSONL ledger file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutSaleBatch appends a batch of sale records as JSON lines.
func (s *JsonlStorage) PutSaleBatch(sales []model.SaleRecord) error {
	if len(sales) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range sales {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal sale record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write sale record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}

	return nil
}

// ReadSales calls fn for every record in a JSONL ledger, in file order.
// Blank lines are skipped; a malformed line aborts with its line number.
func ReadSales(path string, fn func(model.SaleRecord) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var record model.SaleRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("parse ledger line %d: %w", line, err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan ledger: %w", err)
	}
	return nil
}

// MultiSink fans a batch out to several sinks and stops at the first error.
type MultiSink []SaleSink

func (m MultiSink) PutSaleBatch(sales []model.SaleRecord) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutSaleBatch(sales); err != nil {
			return err
		}
	}
	return nil
}
