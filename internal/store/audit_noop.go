package store

import (
	"context"

	"github.com/serroba/storefront-api/internal/audit"
	"go.uber.org/zap"
)

// AuditNoop is an audit.Store that only logs the events it receives.
type AuditNoop struct {
	logger *zap.Logger
}

// NewAuditNoop creates a new logging-only audit store.
func NewAuditNoop(logger *zap.Logger) *AuditNoop {
	return &AuditNoop{logger: logger}
}

func (n *AuditNoop) SaveRejection(_ context.Context, event *audit.RejectionEvent) error {
	n.logger.Info("rate limit rejection received",
		zap.String("id", event.ID),
		zap.String("operationId", event.OperationID),
		zap.String("clientKey", event.ClientKey),
		zap.Int64("count", event.Count),
		zap.Int64("maxRequests", event.MaxRequests),
		zap.Time("rejectedAt", event.RejectedAt),
	)

	return nil
}

// Compile-time check.
var _ audit.Store = (*AuditNoop)(nil)
