package evidence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/meshfront/meshfront/internal/endpoint"
)

const recordFile = "endpoints.log"

// Record is one JSON line in the evidence log.
type Record struct {
	ID         string   `json:"id"`
	RecordedAt string   `json:"recorded_at"`
	Endpoints  []string `json:"endpoints"`
}

// Sink appends records to <dir>/endpoints.log.
type Sink struct {
	dir    string
	logger *slog.Logger
}

// NewSink creates a Sink writing under dir.
func NewSink(dir string, logger *slog.Logger) *Sink {
	return &Sink{dir: dir, logger: logger}
}

// Record appends a snapshot of the endpoint set. Errors are logged and
// swallowed; the control flow never depends on this write.
func (s *Sink) Record(set endpoint.Set) {
	if err := s.append(set); err != nil {
		s.logger.Warn("Failed to write evidence record", slog.Any("err", err))
	}
}

func (s *Sink) append(set endpoint.Set) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating evidence directory: %w", err)
	}

	record := Record{
		ID:         uuid.NewString(),
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
		Endpoints:  set.Keys(),
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding evidence record: %w", err)
	}

	path := filepath.Join(s.dir, recordFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening evidence log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending evidence record: %w", err)
	}

	return nil
}
