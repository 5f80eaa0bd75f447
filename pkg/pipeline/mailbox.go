// Package pipeline feeds frames to a single processing goroutine.
//
// Producers publish into a one-slot Mailbox; a newer frame replaces an
// unconsumed one, so a slow processor always works on the latest frame
// and producers never block. Exactly one Worker consumes the mailbox,
// which keeps the processor's single-caller discipline explicit.
package pipeline

import (
	"sync"

	"github.com/teslashibe/go-edgeview/pkg/frame"
)

// Mailbox is a single-slot, overwrite-on-publish frame buffer.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *frame.Frame
	closed bool

	published        uint64
	consumed         uint64
	consecutiveDrops uint64
	totalDrops       uint64
}

// MailboxStats are the mailbox counters.
type MailboxStats struct {
	Published        uint64 `json:"published"`
	Consumed         uint64 `json:"consumed"`
	Dropped          uint64 `json:"dropped"`
	ConsecutiveDrops uint64 `json:"consecutive_drops"`
}

// NewMailbox returns an empty open mailbox.
func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Publish stores f, replacing any unconsumed frame, whose pooled storage
// is recycled. Returns false once the mailbox is closed; f is recycled
// then too.
func (m *Mailbox) Publish(f frame.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		f.Recycle()
		return false
	}
	if m.frame != nil {
		m.frame.Recycle()
		m.consecutiveDrops++
		m.totalDrops++
	}
	m.frame = &f
	m.published++
	m.cond.Signal()
	return true
}

// Next blocks until a frame is available or the mailbox is closed.
// ok is false after Close. Must be called from one goroutine only.
func (m *Mailbox) Next() (f frame.Frame, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return frame.Frame{}, false
	}

	f = *m.frame
	m.frame = nil
	m.consumed++
	m.consecutiveDrops = 0
	return f, true
}

// Close wakes the consumer and rejects further publishes. Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	if m.frame != nil {
		m.frame.Recycle()
		m.frame = nil
	}
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (m *Mailbox) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{
		Published:        m.published,
		Consumed:         m.consumed,
		Dropped:          m.totalDrops,
		ConsecutiveDrops: m.consecutiveDrops,
	}
}
