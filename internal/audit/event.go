package audit

import "time"

// TopicRejected is the topic rejection events are published on.
const TopicRejected = "ratelimit.rejected"

// RejectionEvent represents a request turned away by the rate limit guard.
type RejectionEvent struct {
	ID          string    `json:"id"`
	OperationID string    `json:"operationId"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	ClientKey   string    `json:"clientKey"`
	ClientIP    string    `json:"clientIp"`
	UserAgent   string    `json:"userAgent"`
	RequestID   string    `json:"requestId,omitempty"`
	Count       int64     `json:"count"`
	MaxRequests int64     `json:"maxRequests"`
	WindowMs    int64     `json:"windowMs"`
	RetryAfter  int64     `json:"retryAfter"`
	RejectedAt  time.Time `json:"rejectedAt"`
}
