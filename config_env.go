package zikauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Fpierr/zikauth/session"
)

// envConfig is the environment view of Config. Unset variables keep DefaultConfig values.
type envConfig struct {
	SigningMethod string        `env:"ZIK_JWT_SIGNING_METHOD" envDefault:"hs256"`
	Secret        string        `env:"ZIK_JWT_SECRET"`
	PrivateKey    string        `env:"ZIK_JWT_PRIVATE_KEY"`
	PublicKey     string        `env:"ZIK_JWT_PUBLIC_KEY"`
	Issuer        string        `env:"ZIK_JWT_ISSUER"`
	Audience      string        `env:"ZIK_JWT_AUDIENCE"`
	AccessTTL     time.Duration `env:"ZIK_ACCESS_TTL" envDefault:"30m"`
	RefreshTTL    time.Duration `env:"ZIK_REFRESH_TTL" envDefault:"168h"`

	SessionTTL       time.Duration `env:"ZIK_SESSION_TTL" envDefault:"2h"`
	SessionKeys      string        `env:"ZIK_SESSION_KEYS,required"`
	SessionPrefix    string        `env:"ZIK_SESSION_PREFIX" envDefault:"zks"`
	RevocationPrefix string        `env:"ZIK_REVOCATION_PREFIX" envDefault:"zrb"`
	StoreTimeout     time.Duration `env:"ZIK_REDIS_TIMEOUT" envDefault:"2s"`

	RefreshAccessPolicy RefreshAccessPolicy `env:"ZIK_REFRESH_ACCESS_POLICY" envDefault:"require_valid"`
	MaxExpiredAccessAge time.Duration       `env:"ZIK_REFRESH_MAX_EXPIRED_ACCESS_AGE" envDefault:"24h"`
	DeleteOnReuse       bool                `env:"ZIK_REFRESH_DELETE_ON_REUSE" envDefault:"true"`

	CookieSecure bool   `env:"ZIK_COOKIE_SECURE" envDefault:"true"`
	CookieDomain string `env:"ZIK_COOKIE_DOMAIN"`

	AuditEnabled   bool `env:"ZIK_AUDIT_ENABLED" envDefault:"false"`
	MetricsEnabled bool `env:"ZIK_METRICS_ENABLED" envDefault:"true"`
	LatencyHist    bool `env:"ZIK_METRICS_LATENCY" envDefault:"true"`
}

// LoadConfigFromEnv builds a Config from ZIK_* environment variables on top of
// DefaultConfig and validates it.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{})
}

func loadConfig(opts env.Options) (Config, error) {
	raw, err := env.ParseAsWithOptions[envConfig](opts)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg := DefaultConfig()

	cfg.JWT.SigningMethod = raw.SigningMethod
	cfg.JWT.Issuer = raw.Issuer
	cfg.JWT.Audience = raw.Audience
	cfg.JWT.AccessTTL = raw.AccessTTL
	cfg.JWT.RefreshTTL = raw.RefreshTTL
	switch raw.SigningMethod {
	case "hs256":
		if raw.Secret == "" {
			return Config{}, errors.New("load config: ZIK_JWT_SECRET is required for hs256")
		}
		cfg.JWT.PrivateKey = []byte(raw.Secret)
	case "ed25519":
		cfg.JWT.PrivateKey = []byte(raw.PrivateKey)
		cfg.JWT.PublicKey = []byte(raw.PublicKey)
	}

	keys, err := session.ParseKeys(raw.SessionKeys)
	if err != nil {
		return Config{}, fmt.Errorf("load config: ZIK_SESSION_KEYS: %w", err)
	}
	cfg.Session.Keys = keys
	cfg.Session.TTL = raw.SessionTTL
	cfg.Session.RedisPrefix = raw.SessionPrefix
	cfg.Session.RevocationPrefix = raw.RevocationPrefix
	cfg.Session.OperationTimeout = raw.StoreTimeout

	cfg.Refresh.AccessPolicy = raw.RefreshAccessPolicy
	cfg.Refresh.MaxExpiredAccessAge = raw.MaxExpiredAccessAge
	cfg.Refresh.DeleteSessionOnReuse = raw.DeleteOnReuse

	cfg.Cookie.Secure = raw.CookieSecure
	cfg.Cookie.Domain = raw.CookieDomain

	cfg.Audit.Enabled = raw.AuditEnabled
	cfg.Metrics.Enabled = raw.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = raw.LatencyHist

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
