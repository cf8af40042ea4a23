package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   = 8 * 1024
	minSaltLength = 16
	minKeyLength  = 16

	// MinLength is the shortest password Hash accepts.
	MinLength = 10
	// MaxLength bounds the input fed to argon2 by both Hash and Verify.
	MaxLength = 1024
)

var (
	ErrTooShort    = fmt.Errorf("password must be at least %d bytes", MinLength)
	ErrTooLong     = fmt.Errorf("password must be at most %d bytes", MaxLength)
	ErrInvalidHash = errors.New("invalid password hash")
)

// Params are the argon2id costs used for new hashes. Memory is in KiB.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams matches the defaults of the engine configuration.
func DefaultParams() Params {
	return Params{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

func (p Params) validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKB)
	case p.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	case p.KeyLength < minKeyLength:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	return nil
}

// Hasher hashes new passwords with fixed Params and verifies stored hashes with
// whatever parameters they were encoded with. It is safe for concurrent use.
type Hasher struct {
	params Params
	dummy  phc
}

// NewHasher validates p and precomputes the hash used by VerifyUnknown.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	h := &Hasher{params: p}

	filler := make([]byte, 32)
	if _, err := rand.Read(filler); err != nil {
		return nil, err
	}
	dummy, err := h.derive(filler)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns the PHC string for plain. Bytes are hashed as given.
func (h *Hasher) Hash(plain string) (string, error) {
	switch {
	case len(plain) < MinLength:
		return "", ErrTooShort
	case len(plain) > MaxLength:
		return "", ErrTooLong
	}
	enc, err := h.derive([]byte(plain))
	if err != nil {
		return "", err
	}
	return enc.String(), nil
}

// Verify reports whether plain matches encoded. A wrong password is (false, nil);
// an unparsable hash wraps ErrInvalidHash.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	if len(plain) > MaxLength {
		return false, ErrTooLong
	}
	stored, err := decodePHC(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return matches(plain, stored), nil
}

// VerifyUnknown runs one verification against the internal dummy hash and
// discards the result.
func (h *Hasher) VerifyUnknown(plain string) {
	if len(plain) > MaxLength {
		plain = plain[:MaxLength]
	}
	_ = matches(plain, h.dummy)
}

func (h *Hasher) derive(plain []byte) (phc, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return phc{}, err
	}
	key := argon2.IDKey(plain, salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	return phc{params: h.params, salt: salt, key: key}, nil
}

func matches(plain string, stored phc) bool {
	p := stored.params
	got := argon2.IDKey([]byte(plain), stored.salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(got, stored.key) == 1
}
