// Package monitor observes statement execution on the query chain.
//
// The executor emits one QueryEvent per statement and fans it out to the
// registered hooks. Hooks ship events wherever they are needed: LogHook
// writes them to the structured logger, NATSPublisher pushes them onto a
// JetStream stream for out-of-process consumers.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Op classifies the statement behind an event.
type Op string

const (
	OpSelect Op = "select"
	OpCount  Op = "count"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// QueryEvent captures a single statement execution.
type QueryEvent struct {
	ID       string        `json:"id"`
	Op       Op            `json:"op"`
	Table    string        `json:"table"`
	SQL      string        `json:"sql"`
	Args     []any         `json:"args,omitempty"`
	Duration time.Duration `json:"duration"`
	Cached   bool          `json:"cached"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// NewEvent builds an event with a fresh ID and the current timestamp.
func NewEvent(op Op, table, query string, args []any) *QueryEvent {
	return &QueryEvent{
		ID:    uuid.NewString(),
		Op:    op,
		Table: table,
		SQL:   query,
		Args:  args,
		At:    time.Now(),
	}
}

// IQueryHook receives query events after each statement execution.
// Delivery is synchronous on the query path; hooks that talk to slow
// backends should hand the event off instead of blocking.
type IQueryHook interface {
	OnQuery(ctx context.Context, event *QueryEvent)
}
