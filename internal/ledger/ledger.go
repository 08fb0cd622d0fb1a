// Package ledger keeps a durable record of builds triggered through
// this gateway. Records live in a single JSON file so they survive
// restarts; insertion order is preserved on disk.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status is the lifecycle state of a triggered build. QUEUED and
// RUNNING are the only non-terminal states; reconciliation stores
// whatever terminal result string Jenkins reports, so values beyond
// the named constants (UNSTABLE, NOT_BUILT, ...) are possible.
type Status string

const (
	StatusQueued  Status = "QUEUED"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusAborted Status = "ABORTED"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s != StatusQueued && s != StatusRunning
}

// Record is one triggered build attempt. QueueID is the correlation
// key; BuildNumber stays nil while the request sits in the queue.
type Record struct {
	JobName     string            `json:"job_name"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	QueueID     int64             `json:"queue_id"`
	BuildNumber *int64            `json:"build_number"`
	TriggerTime time.Time         `json:"trigger_time"`
	Status      Status            `json:"status"`
}

// Store is a thread-safe, file-backed record store. A single mutex
// covers every load-mutate-persist cycle; multiple processes sharing
// one file are not coordinated beyond that.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store over the given file path. The file and its
// directory are created lazily on first write.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
	}
}

// load reads all records from disk. A missing or unparseable file is
// treated as an empty store, never an error.
func (s *Store) load() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

func (s *Store) save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

// Add appends a new record. Status is derived from the build number:
// RUNNING when it is known, QUEUED otherwise.
func (s *Store) Add(jobName string, parameters map[string]string, queueID int64, buildNumber *int64) (Record, error) {
	status := StatusQueued
	if buildNumber != nil {
		status = StatusRunning
	}
	record := Record{
		JobName:     jobName,
		Parameters:  parameters,
		QueueID:     queueID,
		BuildNumber: buildNumber,
		TriggerTime: s.now().UTC(),
		Status:      status,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.load()
	records = append(records, record)
	if err := s.save(records); err != nil {
		return Record{}, err
	}
	return record, nil
}

// List returns all records, newest first.
func (s *Store) List() []Record {
	s.mu.Lock()
	records := s.load()
	s.mu.Unlock()

	reversed := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		reversed = append(reversed, records[i])
	}
	return reversed
}

// Update mutates the record identified by queueID. A nil buildNumber
// or empty status leaves that field untouched. Terminal statuses are
// monotonic: once a record reaches one, its status is never changed
// again. TriggerTime and Parameters are never touched.
func (s *Store) Update(queueID int64, buildNumber *int64, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	for i := range records {
		if records[i].QueueID != queueID {
			continue
		}
		if buildNumber != nil {
			records[i].BuildNumber = buildNumber
		}
		if status != "" && !records[i].Status.Terminal() {
			records[i].Status = status
		}
		break
	}
	return s.save(records)
}

// Clear removes all records.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}
