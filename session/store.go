package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fpierr/zikauth/internal"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned for unknown, expired, malformed or tampered sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreUnavailable wraps failures talking to Redis.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrRecordExpired is returned when the embedded expiry has passed before Redis evicted the key.
	ErrRecordExpired = errors.New("session record expired")
	// ErrSessionIDCollision is returned when a freshly generated id already exists.
	ErrSessionIDCollision = errors.New("session id collision")
)

const (
	defaultPrefix           = "zks"
	defaultOperationTimeout = 2 * time.Second
	aadPrefix               = "zikauth/session|"
)

// Config controls key layout, lifetime and per-call timeouts of a Store.
type Config struct {
	Prefix           string
	TTL              time.Duration
	OperationTimeout time.Duration
}

// Store persists encrypted session records in Redis under "<prefix>:<sessionID>".
type Store struct {
	redis   redis.UniversalClient
	keyring *Keyring
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewStore binds a Redis client and keyring. A zero TTL is rejected.
func NewStore(client redis.UniversalClient, keyring *Keyring, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("session store requires a redis client")
	}
	if keyring == nil || keyring.Len() == 0 {
		return nil, ErrNoKeys
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be > 0")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}

	return &Store{
		redis:   client,
		keyring: keyring,
		prefix:  cfg.Prefix,
		ttl:     cfg.TTL,
		timeout: cfg.OperationTimeout,
		now:     time.Now,
	}, nil
}

// TTL returns the lifetime applied to new records.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func aad(sessionID string) []byte {
	return []byte(aadPrefix + sessionID)
}

// Create stores a new record and returns its freshly generated session id.
func (s *Store) Create(ctx context.Context, userID, csrfToken, refreshTokenID string) (string, error) {
	id, err := internal.NewSessionID()
	if err != nil {
		return "", err
	}
	sessionID := id.String()

	now := s.now()
	rec := &Record{
		SchemaVersion:  CurrentSchemaVersion,
		SessionID:      sessionID,
		UserID:         userID,
		CSRFToken:      csrfToken,
		RefreshTokenID: refreshTokenID,
		IssuedAt:       now.Unix(),
		ExpiresAt:      now.Add(s.ttl).Unix(),
	}

	plain, err := Encode(rec)
	if err != nil {
		return "", err
	}
	blob, err := s.keyring.Seal(plain, aad(sessionID))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.redis.SetNX(ctx, s.key(sessionID), blob, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return "", ErrSessionIDCollision
	}

	return sessionID, nil
}

// Get loads and decrypts a record. Every way a session can be unusable short of
// a backend failure is reported as ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	blob, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := s.open(sessionID, blob)
	if err != nil {
		if isAbsent(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return rec, nil
}

func (s *Store) open(sessionID string, blob []byte) (*Record, error) {
	plain, err := s.keyring.Open(blob, aad(sessionID))
	if err != nil {
		return nil, err
	}
	rec, err := Decode(plain)
	if err != nil {
		return nil, err
	}
	if rec.Expired(s.now().Unix()) {
		return nil, ErrRecordExpired
	}
	rec.SessionID = sessionID
	return rec, nil
}

// isAbsent lists the failure kinds that mean "this session does not usably exist".
func isAbsent(err error) bool {
	switch {
	case errors.Is(err, ErrCiphertextInvalid),
		errors.Is(err, ErrMalformedRecord),
		errors.Is(err, ErrUnsupportedSchemaVersion),
		errors.Is(err, ErrRecordExpired):
		return true
	default:
		return false
	}
}

// Delete removes a record. Deleting an unknown or malformed id is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks reachability and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
