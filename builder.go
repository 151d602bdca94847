package goSession

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/timer"
	"github.com/MrEthical07/goSession/jwt"
)

const instrumentationName = "github.com/MrEthical07/goSession"

// Builder assembles a [Controller].
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	store          credstore.Store
	httpClient     *http.Client
	logger         *slog.Logger
	auditSink      AuditSink
	clock          clock.Clock
	tracerProvider trace.TracerProvider

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Config.Backend.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Backend.BaseURL = baseURL
	return b
}

// WithStore sets the credential store.
//
// Without a store the session lives in memory only and does not survive a restart.
func (b *Builder) WithStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient sets the HTTP client for backend auth calls.
//
// The client is used for backend auth calls and as the default Gateway transport. The
// controller imposes no timeout of its own.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit event destination. Use MultiSink for several.
//
// The sink is only used when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces the wall clock used for expiry checks and the background timer.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithTracerProvider sets the provider for gateway spans. The global provider is used
// otherwise.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms enables the refresh latency histogram. Metrics must be enabled too.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Controller in StatusUnknown. A
// Builder can be built once.
func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	store := b.store
	if store == nil {
		logger.Warn("goSession: no credential store configured, sessions will not survive restart")
		store = credstore.NewMemoryStore()
	}
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	client := backend.New(httpClient, cfg.Backend.BaseURL, backend.Endpoints{
		Login:    cfg.Backend.Endpoints.Login,
		Register: cfg.Backend.Endpoints.Register,
		Refresh:  cfg.Backend.Endpoints.Refresh,
	})

	c := &Controller{
		config:     cfg,
		store:      store,
		backend:    client,
		clock:      clk,
		timer:      timer.New(clk),
		logger:     logger,
		metrics:    NewMetrics(cfg.Metrics),
		httpClient: httpClient,
		tracer:     tp.Tracer(instrumentationName),
		opLock:     make(chan struct{}, 1),
		subs:       make(map[uint64]chan Status),
		session:    Session{Status: StatusUnknown},
	}

	c.flows = flows.New(flows.Deps{
		Bootstrap: flows.BootstrapDeps{Store: store, Decode: jwt.Decode, Now: clk.Now},
		Login:     flows.LoginDeps{Store: store, Decode: jwt.Decode, Now: clk.Now},
		Refresh: flows.RefreshDeps{
			Store:   store,
			Refresh: client.Refresh,
			Decode:  jwt.Decode,
			Now:     clk.Now,
		},
		Logout: flows.LogoutDeps{Store: store},
	})

	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	return c, nil
}
