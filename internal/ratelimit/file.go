package ratelimit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk shape of a policy override file:
//
//	policies:
//	  get-api-info:
//	    windowMs: 60000
//	    maxRequests: 100
//	    message: "slow down"
type policyFile struct {
	Policies map[string]struct {
		WindowMs    int64  `yaml:"windowMs"`
		MaxRequests int64  `yaml:"maxRequests"`
		Message     string `yaml:"message"`
	} `yaml:"policies"`
}

// LoadPolicies reads per-operation policies from a YAML file.
// Every policy is validated; the first invalid one fails the load.
func LoadPolicies(path string) (Policies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	return ParsePolicies(data)
}

// ParsePolicies decodes per-operation policies from YAML.
func ParsePolicies(data []byte) (Policies, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}

	policies := make(Policies, len(file.Policies))

	for opID, raw := range file.Policies {
		p := Policy{
			Window:      time.Duration(raw.WindowMs) * time.Millisecond,
			MaxRequests: raw.MaxRequests,
			Message:     raw.Message,
		}

		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("policy %q: %w", opID, err)
		}

		policies[opID] = p
	}

	return policies, nil
}
