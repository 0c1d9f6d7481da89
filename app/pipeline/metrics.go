package pipeline

import (
	"sync/atomic"
	"time"
)

// Metrics accumulates counters for one run. All increments are atomic:
// workers update it concurrently and must never lose updates. The
// reason/kind maps are fully populated at construction and never
// mutated afterwards, so map access itself needs no locking.
type Metrics struct {
	totalFound atomic.Int64
	processed  atomic.Int64
	saved      atomic.Int64
	filtered   map[Reason]*atomic.Int64
	errors     map[ErrorKind]*atomic.Int64
	startTime  time.Time
	endTime    time.Time
}

// Snapshot is an immutable copy of the counters, safe to serialize.
type Snapshot struct {
	TotalFound int64                `json:"total_found"`
	Processed  int64                `json:"processed"`
	Saved      int64                `json:"saved"`
	Filtered   map[Reason]int64     `json:"filtered"`
	Errors     map[ErrorKind]int64  `json:"errors"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    time.Time            `json:"end_time"`
}

func NewMetrics() *Metrics {
	m := &Metrics{
		filtered:  make(map[Reason]*atomic.Int64, len(Reasons)),
		errors:    make(map[ErrorKind]*atomic.Int64, len(ErrorKinds)),
		startTime: time.Now().UTC(),
	}
	for _, reason := range Reasons {
		m.filtered[reason] = &atomic.Int64{}
	}
	for _, kind := range ErrorKinds {
		m.errors[kind] = &atomic.Int64{}
	}
	return m
}

func (m *Metrics) SetTotalFound(n int) {
	m.totalFound.Store(int64(n))
}

func (m *Metrics) IncProcessed() {
	m.processed.Add(1)
}

func (m *Metrics) IncSaved() {
	m.saved.Add(1)
}

func (m *Metrics) IncFiltered(reason Reason) {
	if counter, ok := m.filtered[reason]; ok {
		counter.Add(1)
	}
}

func (m *Metrics) IncError(kind ErrorKind) {
	if counter, ok := m.errors[kind]; ok {
		counter.Add(1)
	}
}

func (m *Metrics) FilteredCount(reason Reason) int64 {
	if counter, ok := m.filtered[reason]; ok {
		return counter.Load()
	}
	return 0
}

func (m *Metrics) ErrorCount(kind ErrorKind) int64 {
	if counter, ok := m.errors[kind]; ok {
		return counter.Load()
	}
	return 0
}

func (m *Metrics) Finish() {
	m.endTime = time.Now().UTC()
}

// Snapshot copies the counters. Zero-valued reasons and kinds are
// omitted to keep run reports compact.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		TotalFound: m.totalFound.Load(),
		Processed:  m.processed.Load(),
		Saved:      m.saved.Load(),
		Filtered:   make(map[Reason]int64),
		Errors:     make(map[ErrorKind]int64),
		StartTime:  m.startTime,
		EndTime:    m.endTime,
	}
	for reason, counter := range m.filtered {
		if v := counter.Load(); v > 0 {
			s.Filtered[reason] = v
		}
	}
	for kind, counter := range m.errors {
		if v := counter.Load(); v > 0 {
			s.Errors[kind] = v
		}
	}
	return s
}
