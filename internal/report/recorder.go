// Package report appends probe run records to a JSONL file. Records
// are written only by the verification runner; the probe commands
// themselves never touch the filesystem.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one probe run record.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         string    `json:"type"` // "start", "result"
	Bytes        int64     `json:"bytes"`
	Slots        int64     `json:"slots,omitempty"`
	HoldSeconds  int       `json:"hold_seconds,omitempty"`
	MemoryMax    string    `json:"memory_max,omitempty"`
	AddressSpace string    `json:"address_space,omitempty"`
	Outcome      string    `json:"outcome,omitempty"` // "completed", "refused", "enforced", "timeout", "failed"
	ExitCode     int       `json:"exit_code,omitempty"`
	Signal       string    `json:"signal,omitempty"`
	PeakRSSBytes uint64    `json:"peak_rss_bytes,omitempty"`
	Duration     string    `json:"duration,omitempty"` // ISO 8601 duration format
	Error        string    `json:"error,omitempty"`
}

// Recorder handles run record logging to a file in JSON format.
type Recorder struct {
	path   string
	file   *os.File
	lock   sync.Mutex
	logger *slog.Logger
}

// NewRecorder creates a new run recorder appending to path.
func NewRecorder(path string) (*Recorder, error) {
	if path == "" {
		return nil, fmt.Errorf("report file path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}

	return &Recorder{
		path:   path,
		file:   file,
		logger: slog.Default(),
	}, nil
}

// Record writes one event to the report file.
func (r *Recorder) Record(event Event) error {
	if r.file == nil {
		return fmt.Errorf("recorder file not initialized")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if _, err := r.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	if err := r.file.Sync(); err != nil {
		r.logger.Warn("failed to sync report file", slog.String("error", err.Error()))
	}

	return nil
}

// RecordStart logs the launch of a probe child.
func (r *Recorder) RecordStart(bytes, slots int64, holdSeconds int, memoryMax, addressSpace string) error {
	return r.Record(Event{
		Timestamp:    time.Now().UTC(),
		Type:         "start",
		Bytes:        bytes,
		Slots:        slots,
		HoldSeconds:  holdSeconds,
		MemoryMax:    memoryMax,
		AddressSpace: addressSpace,
	})
}

// RecordResult logs the terminal outcome of a probe child.
func (r *Recorder) RecordResult(bytes int64, outcome string, exitCode int, signal string, peakRSS uint64, duration time.Duration, errMsg string) error {
	durationStr := fmt.Sprintf("PT%d.%09dS", int64(duration.Seconds()), duration.Nanoseconds()%1e9)

	return r.Record(Event{
		Timestamp:    time.Now().UTC(),
		Type:         "result",
		Bytes:        bytes,
		Outcome:      outcome,
		ExitCode:     exitCode,
		Signal:       signal,
		PeakRSSBytes: peakRSS,
		Duration:     durationStr,
		Error:        errMsg,
	})
}

// Close closes the underlying report file.
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
