package zikauth

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Fpierr/zikauth/internal/audit"
	"github.com/Fpierr/zikauth/internal/logattr"
	"github.com/Fpierr/zikauth/internal/stores"
	"github.com/Fpierr/zikauth/jwt"
	"github.com/Fpierr/zikauth/password"
	"github.com/Fpierr/zikauth/session"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	logger *slog.Logger

	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session store and the refresh blacklist.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user lookup used by Login and Authenticate.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- SESSION STORE --------
	keyring, err := session.NewKeyring(cfg.Session.Keys...)
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(b.redis, keyring, session.Config{
		Prefix:           cfg.Session.RedisPrefix,
		TTL:              cfg.Session.TTL,
		OperationTimeout: cfg.Session.OperationTimeout,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		logger:       logger.With(logattr.Component("zikauth")),
		sessionStore: store,
		revocations:  stores.NewRevocationStore(b.redis, cfg.Session.RevocationPrefix, cfg.Session.OperationTimeout),
		userProvider: b.userProvider,
		metrics:      NewMetrics(cfg.Metrics),
	}

	if cfg.Audit.Enabled {
		engine.audit = audit.Start(b.auditSink, audit.Options{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			OnDrop:     func() { engine.metricInc(MetricAuditDropped) },
		})
	}

	// -------- PASSWORDS --------
	ph, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
