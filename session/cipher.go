package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	envelopeV1   byte = 1
	minKeyLength      = 32
	keyInfo           = "zikauth session record v1"
)

var (
	// ErrCiphertextInvalid is returned when a sealed blob fails authentication under every key.
	ErrCiphertextInvalid = errors.New("session ciphertext invalid")
	// ErrNoKeys is returned when a Keyring is built without key material.
	ErrNoKeys = errors.New("session keyring requires at least one key")
	// ErrKeyTooShort is returned for key material shorter than 32 bytes.
	ErrKeyTooShort = errors.New("session key must be at least 32 bytes")
)

// Keyring seals session records with AES-256-GCM. The first key seals; every key is
// tried on open so old records stay readable across a key rotation.
type Keyring struct {
	aeads []cipher.AEAD
}

// NewKeyring derives one AES-256 key per input secret via HKDF-SHA256.
func NewKeyring(keys ...[]byte) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	k := &Keyring{aeads: make([]cipher.AEAD, 0, len(keys))}
	for i, secret := range keys {
		if len(secret) < minKeyLength {
			return nil, fmt.Errorf("key %d: %w", i, ErrKeyTooShort)
		}

		derived := make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), derived); err != nil {
			return nil, fmt.Errorf("key %d: derive: %w", i, err)
		}

		block, err := aes.NewCipher(derived)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		k.aeads = append(k.aeads, aead)
	}

	return k, nil
}

// Len reports how many keys the ring holds.
func (k *Keyring) Len() int {
	return len(k.aeads)
}

// Seal encrypts plaintext with the primary key, binding aad.
// Output layout: envelope version || nonce || ciphertext+tag.
func (k *Keyring) Seal(plaintext, aad []byte) ([]byte, error) {
	aead := k.aeads[0]

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	out[0] = envelopeV1
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}

	return aead.Seal(out, out[1:], plaintext, aad), nil
}

// Open decrypts a blob produced by Seal. Any failure is ErrCiphertextInvalid.
func (k *Keyring) Open(blob, aad []byte) ([]byte, error) {
	if len(blob) < 1 || blob[0] != envelopeV1 {
		return nil, ErrCiphertextInvalid
	}
	body := blob[1:]

	for _, aead := range k.aeads {
		ns := aead.NonceSize()
		if len(body) < ns+aead.Overhead() {
			return nil, ErrCiphertextInvalid
		}
		plain, err := aead.Open(nil, body[:ns], body[ns:], aad)
		if err == nil {
			return plain, nil
		}
	}

	return nil, ErrCiphertextInvalid
}

// ParseKeys decodes a comma separated list of base64 keys (standard or URL alphabet,
// padded or not). The first key is the primary.
func ParseKeys(csv string) ([][]byte, error) {
	var out [][]byte
	for i, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, err := decodeKey(part)
		if err != nil {
			return nil, fmt.Errorf("session key %d: %w", i, err)
		}
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil, ErrNoKeys
	}
	return out, nil
}

// GenerateKey returns a fresh random 32-byte key, base64 encoded.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("not valid base64")
}
