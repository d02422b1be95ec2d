package usecase

import (
	"sync"

	"FinWatch/internal/domain/models"
)

// EntryKind distinguishes a fetched batch from the no-data marker.
type EntryKind int

const (
	EntryBatch EntryKind = iota
	EntryNoData
)

func (k EntryKind) String() string {
	if k == EntryNoData {
		return "no_data"
	}
	return "batch"
}

// Entry is one item handed from a session to its consumer.
type Entry struct {
	Kind  EntryKind
	Batch models.Batch
}

// NoDataEntry is the marker pushed when a poll produced nothing.
func NoDataEntry() Entry { return Entry{Kind: EntryNoData} }

// BatchEntry wraps a fetched batch.
func BatchEntry(b models.Batch) Entry { return Entry{Kind: EntryBatch, Batch: b} }

// SampleQueue is an unbounded FIFO shared by exactly one producer and one
// consumer. Push never blocks and Drain never waits for data.
type SampleQueue struct {
	mu     sync.Mutex
	items  []Entry
	closed bool
}

func NewSampleQueue() *SampleQueue {
	return &SampleQueue{}
}

// Push appends e. Pushing into a closed queue is a no-op.
func (q *SampleQueue) Push(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, e)
}

// Drain removes and returns everything currently queued, oldest first.
func (q *SampleQueue) Drain() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *SampleQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close discards queued entries; later pushes are dropped.
func (q *SampleQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

func (q *SampleQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
