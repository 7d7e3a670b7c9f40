package ratelimit

import "github.com/danielgtaylor/huma/v2"

// MetadataKey is the key used to store a Policy in operation metadata.
const MetadataKey = "rateLimit"

// Policies maps operation IDs to the policy enforced on them.
type Policies map[string]Policy

// Resolver finds the policy attached to an operation at dispatch time.
//
// Policies registered by operation ID take precedence over the Policy found
// in the operation's metadata. Operations with neither are not limited.
type Resolver struct {
	overrides Policies
}

// NewResolver creates a resolver with optional per-operation overrides.
func NewResolver(overrides Policies) *Resolver {
	if overrides == nil {
		overrides = Policies{}
	}

	return &Resolver{overrides: overrides}
}

// Resolve returns the policy for op, or nil if the operation is unlimited.
func (r *Resolver) Resolve(op *huma.Operation) *Policy {
	if op == nil {
		return nil
	}

	if p, ok := r.overrides[op.OperationID]; ok {
		return &p
	}

	return PolicyFromOperation(op)
}

// PolicyFromOperation extracts the Policy from operation metadata, if present.
func PolicyFromOperation(op *huma.Operation) *Policy {
	if op == nil || op.Metadata == nil {
		return nil
	}

	switch p := op.Metadata[MetadataKey].(type) {
	case Policy:
		return &p
	case *Policy:
		return p
	default:
		return nil
	}
}
