package goSession

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/guard"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/gateway"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/session"
)

// Builder assembles a Client. A Builder can be built once.
type Builder struct {
	config     Config
	storage    session.Storage
	redis      redis.UniversalClient
	httpClient *http.Client
	auditSink  AuditSink
	logger     *slog.Logger
	routes     *guard.Table

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the session backend explicitly.
func (b *Builder) WithStorage(s session.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis persists the session record in Redis unless WithStorage is used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sends requests through hc. A cookie jar is added when hc has
// none, since the refresh credential travels as a cookie.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithAuditSink receives audit events when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger overrides slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRouteTable sets the table used by Client.AuthorizePath.
func (b *Builder) WithRouteTable(t *guard.Table) *Builder {
	b.routes = t
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles refresh latency timing. It has no effect
// while metrics are disabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, rehydrates the persisted session once
// and returns a ready Client. A storage failure during rehydration is logged
// and the Client starts with an empty session.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gosession")

	storage := b.storage
	switch {
	case storage != nil:
	case b.redis != nil:
		storage = session.NewRedisStorage(b.redis, cfg.Storage.RedisPrefix, cfg.Storage.RedisTTL)
	case cfg.Storage.FileDir != "":
		storage = session.NewFileStorage(cfg.Storage.FileDir)
	default:
		storage = session.NewMemoryStorage()
	}

	store := session.NewStore(storage,
		session.WithNamespace(cfg.Storage.Namespace),
		session.WithLogger(logger),
	)

	rc, err := newRestyClient(b.httpClient, cfg.API, logger)
	if err != nil {
		return nil, err
	}

	routes := b.routes
	if routes == nil {
		routes = guard.DefaultTable()
	}

	c := &Client{
		config:   cfg,
		store:    store,
		guard:    guard.New(cfg.Routes),
		routes:   routes,
		validate: newValidator(),
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger,
		}, b.auditSink),
		logger: logger,
	}
	c.gateway = gateway.New(rc, gateway.Deps{
		Store:            store,
		RefreshPath:      cfg.API.RefreshPath,
		RefreshTimeout:   cfg.API.RefreshTimeout,
		OnRefreshFailure: c.endSessionAfterRefreshFailure,
		OnRefreshSuccess: c.recordRefresh,
		Metrics:          c.metrics,
		Logger:           logger,
	})

	if err := store.Load(context.Background()); err != nil {
		logger.Warn("persisted session not restored", "error", err)
	}

	b.built = true
	return c, nil
}

func newRestyClient(hc *http.Client, api APIConfig, logger *slog.Logger) (*resty.Client, error) {
	var rc *resty.Client
	if hc == nil {
		rc = resty.New()
	} else {
		rc = resty.NewWithClient(hc)
		if hc.Jar == nil {
			jar, err := cookiejar.New(nil)
			if err != nil {
				return nil, err
			}
			rc.SetCookieJar(jar)
		}
	}

	rc.SetBaseURL(api.BaseURL).
		SetTimeout(api.Timeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger})
	if api.UserAgent != "" {
		rc.SetHeader("User-Agent", api.UserAgent)
	}
	return rc, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}
