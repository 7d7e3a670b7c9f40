package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/storefront-api/internal/ratelimit"
)

// OperationGetInfo is the operation ID of the service info endpoint.
const OperationGetInfo = "get-api-info"

// InfoPolicy is the default quota of the service info endpoint.
var InfoPolicy = ratelimit.Policy{
	Window:      time.Minute,
	MaxRequests: 100,
}

// RegisterRoutes registers the API routes with their rate limit policies.
// A policy file can still override any of them by operation ID.
func RegisterRoutes(api huma.API, info *InfoHandler) {
	// GET / - Service info
	huma.Register(api, huma.Operation{
		OperationID: OperationGetInfo,
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service info",
		Description: "Returns the service name, version and server time.",
		Tags:        []string{"Info"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: InfoPolicy,
		},
	}, info.Get)
}
