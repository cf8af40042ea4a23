package zikauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Fpierr/zikauth/session"
)

// Config is the complete engine configuration. Build a value with DefaultConfig,
// adjust it, then hand it to Builder.WithConfig; the engine keeps its own copy.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access and refresh token signing.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	// PrivateKey is the HMAC secret for hs256 or the Ed25519 private key.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	KeyID      string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the encrypted session store.
type SessionConfig struct {
	RedisPrefix      string
	RevocationPrefix string
	TTL              time.Duration
	OperationTimeout time.Duration
	// Keys are the record encryption secrets. The first seals new records; all of
	// them are tried when opening, so a key can be rotated without logging users out.
	Keys [][]byte
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshAccessPolicy decides whether the refresh endpoint accepts an expired access token.
type RefreshAccessPolicy int

const (
	// RefreshRequireValidAccess rejects refresh requests whose access token has expired.
	RefreshRequireValidAccess RefreshAccessPolicy = iota
	// RefreshAllowExpiredAccess accepts a correctly signed access token that expired
	// no longer than MaxExpiredAccessAge ago.
	RefreshAllowExpiredAccess
)

func (p RefreshAccessPolicy) String() string {
	switch p {
	case RefreshRequireValidAccess:
		return "require_valid"
	case RefreshAllowExpiredAccess:
		return "allow_expired"
	default:
		return fmt.Sprintf("RefreshAccessPolicy(%d)", int(p))
	}
}

// ParseRefreshAccessPolicy accepts the String form of a policy.
func ParseRefreshAccessPolicy(s string) (RefreshAccessPolicy, error) {
	switch s {
	case "", "require_valid":
		return RefreshRequireValidAccess, nil
	case "allow_expired":
		return RefreshAllowExpiredAccess, nil
	default:
		return 0, fmt.Errorf("unknown refresh access policy %q", s)
	}
}

// UnmarshalText lets env and flag loaders decode the policy by name.
func (p *RefreshAccessPolicy) UnmarshalText(text []byte) error {
	v, err := ParseRefreshAccessPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// RefreshConfig controls refresh-token rotation.
type RefreshConfig struct {
	AccessPolicy        RefreshAccessPolicy
	MaxExpiredAccessAge time.Duration
	// DeleteSessionOnReuse removes the targeted session when a rotated-out or
	// foreign refresh token is presented against it.
	DeleteSessionOnReuse bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the web channel cookies.
type CookieConfig struct {
	Secure bool
	Domain string
	Path   string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit emitter.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.PrivateKey and Session.Keys
// have no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:      "zks",
			RevocationPrefix: "zrb",
			TTL:              2 * time.Hour,
			OperationTimeout: 2 * time.Second,
		},
		Refresh: RefreshConfig{
			AccessPolicy:         RefreshRequireValidAccess,
			MaxExpiredAccessAge:  24 * time.Hour,
			DeleteSessionOnReuse: true,
		},
		Cookie: CookieConfig{
			Secure: true,
			Path:   "/",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.Session.Keys != nil {
		out.Session.Keys = make([][]byte, len(cfg.Session.Keys))
		for i, k := range cfg.Session.Keys {
			out.Session.Keys[i] = cloneBytes(k)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.OperationTimeout <= 0 {
		return errors.New("Session OperationTimeout must be > 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if c.Session.RevocationPrefix == "" || c.Session.RevocationPrefix == c.Session.RedisPrefix {
		return errors.New("Session RevocationPrefix must be set and differ from RedisPrefix")
	}
	if len(c.Session.Keys) == 0 {
		return session.ErrNoKeys
	}
	for i, k := range c.Session.Keys {
		if len(k) < 32 {
			return fmt.Errorf("Session key %d: %w", i, session.ErrKeyTooShort)
		}
	}

	// Refresh
	switch c.Refresh.AccessPolicy {
	case RefreshRequireValidAccess:
	case RefreshAllowExpiredAccess:
		if c.Refresh.MaxExpiredAccessAge <= 0 {
			return errors.New("Refresh MaxExpiredAccessAge must be > 0 when expired access is allowed")
		}
	default:
		return errors.New("unknown Refresh AccessPolicy")
	}

	// Cookie
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must be set")
	}

	// Password
	if c.Password.Memory < 8*1024 || c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("Password argon2 parameters are too weak")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password SaltLength and KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
