// Package history keeps the rolling log of classified readings and the
// detection events derived from status changes.
//
// The in-memory log is authoritative. A Persister, when attached, mirrors
// every write on a best-effort basis: persistence failures are logged and
// dropped so that a broken storage backend never interrupts monitoring.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/firewatch/internal/monitoring"
	"github.com/banshee-data/firewatch/internal/sensor"
)

// Record is one classified reading.
type Record struct {
	Reading      sensor.Reading `json:"reading"`
	Status       sensor.Status  `json:"status"`
	AIConfidence *float64       `json:"ai_confidence,omitempty"`
}

// DetectionEvent is a recorded transition between two statuses.
type DetectionEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	From      sensor.Status  `json:"from_status"`
	To        sensor.Status  `json:"to_status"`
	Reading   sensor.Reading `json:"reading"`
}

// Counts is the number of detection events by destination status.
type Counts struct {
	Fire  int `json:"fire_events"`
	Smoke int `json:"smoke_events"`
	Clear int `json:"clear_events"`
}

// Total is the number of events counted.
func (c Counts) Total() int {
	return c.Fire + c.Smoke + c.Clear
}

func (c *Counts) add(to sensor.Status) {
	switch to {
	case sensor.Fire:
		c.Fire++
	case sensor.Smoke:
		c.Smoke++
	case sensor.Clear:
		c.Clear++
	}
}

// Recount derives counts from an event log.
func Recount(events []DetectionEvent) Counts {
	var c Counts
	for _, e := range events {
		c.add(e.To)
	}
	return c
}

// Persister mirrors store writes to durable storage.
type Persister interface {
	SaveRecord(Record) error
	SaveEvent(DetectionEvent) error
	ClearHistory() error
}

// Options configures a Store.
type Options struct {
	// MaxRecords bounds the record log; the oldest records are evicted
	// first. Zero means unbounded. Events are never evicted.
	MaxRecords int

	// Persister receives every write. Nil disables persistence.
	Persister Persister

	// NewID generates event IDs. Defaults to random UUIDs.
	NewID func() string
}

// Store is the append-only history log. It is safe for concurrent use.
type Store struct {
	// writeMu serialises writers so persisted order matches log order,
	// while readers only contend on mu.
	writeMu sync.Mutex

	mu         sync.RWMutex
	records    []Record
	events     []DetectionEvent
	counts     Counts
	lastStatus sensor.Status

	maxRecords int
	persister  Persister
	newID      func() string
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	maxRecords := opts.MaxRecords
	if maxRecords < 0 {
		maxRecords = 0
	}
	return &Store{
		maxRecords: maxRecords,
		persister:  opts.Persister,
		newID:      newID,
		lastStatus: sensor.Clear,
	}
}

// SetPersister attaches or detaches (nil) the persistence backend.
func (s *Store) SetPersister(p Persister) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.persister = p
}

// Record appends a record. When status differs from the previous record's
// status (Clear if there is none) a detection event is appended too and
// returned with ok set.
func (s *Store) Record(r sensor.Reading, status sensor.Status, aiConfidence *float64) (event DetectionEvent, ok bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, event, ok := s.append(r, status, aiConfidence)

	if s.persister == nil {
		return event, ok
	}
	if err := s.persister.SaveRecord(rec); err != nil {
		monitoring.Logf("history: failed to persist record: %v", err)
	}
	if ok {
		if err := s.persister.SaveEvent(event); err != nil {
			monitoring.Logf("history: failed to persist detection event %s: %v", event.ID, err)
		}
	}
	return event, ok
}

func (s *Store) append(r sensor.Reading, status sensor.Status, aiConfidence *float64) (Record, DetectionEvent, bool) {
	rec := Record{Reading: r, Status: status}
	if aiConfidence != nil {
		c := *aiConfidence
		rec.AIConfidence = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if s.maxRecords > 0 && len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}

	prev := s.lastStatus
	s.lastStatus = status
	if status == prev {
		return rec, DetectionEvent{}, false
	}

	event := DetectionEvent{
		ID:        s.newID(),
		Timestamp: r.Timestamp,
		From:      prev,
		To:        status,
		Reading:   r,
	}
	s.events = append(s.events, event)
	s.counts.add(status)
	return rec, event, true
}

// Replay rebuilds the store from previously persisted records, deriving
// events exactly as live recording would. Nothing is written back to the
// persister.
func (s *Store) Replay(records []Record) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.reset()
	for _, rec := range records {
		s.append(rec.Reading, rec.Status, rec.AIConfidence)
	}
}

// Clear removes every record and event. The next Record behaves as if no
// history existed.
func (s *Store) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.reset()
	if s.persister != nil {
		if err := s.persister.ClearHistory(); err != nil {
			monitoring.Logf("history: failed to clear persisted history: %v", err)
		}
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.events = nil
	s.counts = Counts{}
	s.lastStatus = sensor.Clear
}

// Counts returns the event counts by destination status.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts
}

// Records returns a copy of the record log in insertion order.
func (s *Store) Records() []Record {
	return s.Recent(0)
}

// Recent returns a copy of the last n records, or all of them when n <= 0.
func (s *Store) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && n < len(s.records) {
		start = len(s.records) - n
	}
	out := make([]Record, len(s.records)-start)
	copy(out, s.records[start:])
	return out
}

// Events returns a copy of the detection event log in insertion order.
func (s *Store) Events() []DetectionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DetectionEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// LastStatus returns the status of the most recent record, or Clear.
func (s *Store) LastStatus() sensor.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}
