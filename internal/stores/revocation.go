package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRevocationPrefix = "zrb"
	minRevocationTTL        = time.Second
)

var (
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	ErrEmptyTokenID          = errors.New("empty token id")
)

// RevocationStore is the refresh-token blacklist. Entries live until the token
// would have expired anyway.
type RevocationStore struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

func NewRevocationStore(redisClient redis.UniversalClient, prefix string, timeout time.Duration) *RevocationStore {
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RevocationStore{
		redis:   redisClient,
		prefix:  prefix,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *RevocationStore) key(jti string) string {
	return s.prefix + ":" + jti
}

// Revoke blacklists jti until the given time. It reports whether this call was the
// one that revoked it; a concurrent or earlier revocation yields false.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyTokenID
	}
	ttl := until.Sub(s.now())
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.redis.SetNX(ctx, s.key(jti), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return ok, nil
}

// IsRevoked reports whether jti is on the blacklist.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyTokenID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return n == 1, nil
}
