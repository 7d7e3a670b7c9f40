package container

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/storefront-api/internal/audit"
	"github.com/serroba/storefront-api/internal/handlers"
	"github.com/serroba/storefront-api/internal/health"
	"github.com/serroba/storefront-api/internal/metrics"
	"github.com/serroba/storefront-api/internal/middleware"
	"github.com/serroba/storefront-api/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	ServiceName    = "Storefront API"
	ServiceVersion = "1.0.0"
)

// Rate limit store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Options struct {
	Port             int    `default:"8888"           help:"Port to listen on"                                   short:"p"`
	LogFormat        string `default:"console"        help:"Log format: console or json"`
	LogLevel         string `default:"info"           help:"Log level: debug, info, warn or error"`
	RateLimitBackend string `default:"memory"         help:"Rate limit store: memory or redis"`
	RedisAddr        string `default:"localhost:6379" help:"Redis server address"                                short:"r"`
	DatabaseURL      string `default:""               help:"PostgreSQL URL for the rejection audit store"`
	PolicyFile       string `default:""               help:"YAML file with per-operation rate limit policies"`
	TrustProxy       bool   `default:"false"          help:"Trust X-Forwarded-For and X-Real-IP for client IPs"`
	Audit            bool   `default:"false"          help:"Publish rate limit rejections to Redis streams"`
	Tracing          bool   `default:"false"          help:"Export traces over OTLP gRPC"`
	OTLPEndpoint     string `default:"localhost:4317" help:"OTLP gRPC collector endpoint"`
	TraceSample      int    `default:"10"             help:"Percentage of root traces to sample (0-100)"`
}

// usesRedis reports whether any configured component needs Redis.
func (o *Options) usesRedis() bool {
	return o.RateLimitBackend == BackendRedis || o.Audit
}

// LoggerPackage provides the process logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat, opts.LogLevel)
	})
}

// NewLogger builds a zap logger. "json" selects the production encoder,
// anything else the human-readable development one.
func NewLogger(format, level string) (*zap.Logger, error) {
	var cfg zap.Config

	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg.Level = lvl

	return cfg.Build()
}

// MetricsPackage provides the Prometheus collectors.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// HTTPPackage provides the router and the Huma API with middleware and routes.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		guard := do.MustInvoke[*ratelimit.Guard](i)
		resolver := do.MustInvoke[*ratelimit.Resolver](i)
		recorder := do.MustInvoke[*audit.Recorder](i)

		api := humachi.New(router, huma.DefaultConfig(ServiceName, ServiceVersion))
		api.UseMiddleware(
			middleware.RequestMeta(api, opts.TrustProxy),
			middleware.RequestLogger(logger, m),
			middleware.RateLimitGuard(api, guard, resolver, m, recorder, logger),
		)

		handlers.RegisterRoutes(api, handlers.NewInfoHandler(ServiceName, ServiceVersion))
		health.RegisterRoutes(api, health.NewHandler(healthCheckers(i, opts)))

		router.Handle("/metrics", m.Handler())

		return api, nil
	})
}

func healthCheckers(i *do.Injector, opts *Options) map[string]health.Checker {
	checkers := map[string]health.Checker{}

	if opts.usesRedis() {
		checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	if opts.DatabaseURL != "" {
		checkers["postgres"] = health.NewPostgresChecker(do.MustInvoke[*PostgresPool](i).Pool)
	}

	return checkers
}
