// Package streaming fans trace events out to live subscribers.
package streaming

import (
	"context"

	"github.com/rendis/stepflow/pkg/schema"
)

// EventFilter selects the events a subscriber receives. Empty fields match
// everything.
type EventFilter struct {
	RunID    string             `json:"run_id,omitempty"`
	Workflow string             `json:"workflow,omitempty"`
	Kinds    []schema.TraceKind `json:"kinds,omitempty"`
}

// EventHub provides pub/sub for real-time trace events.
type EventHub interface {
	Publish(ctx context.Context, event schema.TraceEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan schema.TraceEvent, func(), error)
}
