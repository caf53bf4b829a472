package alerts

import (
	"context"
	"sync"
)

// auditCapacity caps the audit log; appending past it evicts oldest first.
const auditCapacity = 1000

// AuditLog is the append-only record of triggering events. It is bounded
// and independent of the alert store: entries survive alert deletion.
type AuditLog interface {
	// Append records a batch of entries in firing order.
	Append(ctx context.Context, entries []AuditEntry) error

	// Recent returns the last n entries in insertion order, newest last.
	Recent(ctx context.Context, n int) ([]AuditEntry, error)
}

// MemoryAuditLog keeps the most recent auditCapacity entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Append(ctx context.Context, entries []AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entries...)
	if excess := len(l.entries) - auditCapacity; excess > 0 {
		l.entries = append(l.entries[:0:0], l.entries[excess:]...)
	}
	return nil
}

func (l *MemoryAuditLog) Recent(ctx context.Context, n int) ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.entries) == 0 {
		return nil, nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}

	out := make([]AuditEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out, nil
}

// Size returns the current entry count.
func (l *MemoryAuditLog) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
