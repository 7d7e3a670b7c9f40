package audit

import "context"

// Store defines the interface for persisting rejection events.
type Store interface {
	SaveRejection(ctx context.Context, event *RejectionEvent) error
}
