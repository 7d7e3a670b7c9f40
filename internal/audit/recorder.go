package audit

import (
	"context"
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/serroba/storefront-api/internal/messaging"
)

// Recorder stamps rejection events and hands them to a publisher.
// A Recorder without a publisher drops events, which is how auditing is
// switched off.
type Recorder struct {
	publish messaging.Publish[RejectionEvent]
	newID   func() string
}

// NewRecorder creates a recorder. publish may be nil.
func NewRecorder(publish messaging.Publish[RejectionEvent]) (*Recorder, error) {
	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("create event id generator: %w", err)
	}

	return &Recorder{publish: publish, newID: newID}, nil
}

// Enabled reports whether recorded events are published anywhere.
func (r *Recorder) Enabled() bool {
	return r != nil && r.publish != nil
}

// Record assigns an ID to event if it has none and publishes it.
func (r *Recorder) Record(ctx context.Context, event *RejectionEvent) error {
	if !r.Enabled() {
		return nil
	}

	if event.ID == "" {
		event.ID = r.newID()
	}

	return r.publish(ctx, event)
}
