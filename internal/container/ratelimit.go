package container

import (
	"fmt"

	"github.com/samber/do"
	"github.com/serroba/storefront-api/internal/ratelimit"
	"github.com/serroba/storefront-api/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the rate limit store, guard and policy resolver.
//
// The store is created once per process and shared by every request; with
// the memory backend, counters are not shared between processes.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitBackend {
		case BackendMemory, "":
			return store.NewRateLimitMemoryStore(), nil
		case BackendRedis:
			client := do.MustInvoke[*RedisClient](i)

			return store.NewRateLimitRedisStore(client.Client), nil
		default:
			return nil, fmt.Errorf("unknown rate limit backend %q", opts.RateLimitBackend)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.Guard, error) {
		return ratelimit.NewGuard(do.MustInvoke[ratelimit.Store](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.Resolver, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.PolicyFile == "" {
			return ratelimit.NewResolver(nil), nil
		}

		policies, err := ratelimit.LoadPolicies(opts.PolicyFile)
		if err != nil {
			return nil, err
		}

		logger.Info("loaded rate limit policies",
			zap.String("file", opts.PolicyFile),
			zap.Int("count", len(policies)),
		)

		return ratelimit.NewResolver(policies), nil
	})
}
