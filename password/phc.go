package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcAlgorithm = "argon2id"

var b64 = base64.RawStdEncoding

// phc is a decoded argon2id hash string.
type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		p.params.Memory, p.params.Time, p.params.Parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

// decodePHC parses s. Cost parameters below the package floor are rejected so a
// tampered directory entry cannot make verification trivially cheap.
func decodePHC(s string) (phc, error) {
	var out phc

	rest, ok := strings.CutPrefix(s, "$"+phcAlgorithm+"$")
	if !ok {
		return out, errors.New("not an argon2id hash")
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return out, errors.New("wrong number of fields")
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || version != argon2.Version {
		return out, errors.New("unsupported argon2 version")
	}

	var p Params
	n, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Time, p.Parallelism) != fields[1] {
		return out, errors.New("malformed cost parameters")
	}
	if p.Memory < minMemoryKB || p.Time < 1 || p.Parallelism < 1 {
		return out, errors.New("cost parameters below minimum")
	}

	if out.salt, err = decodeB64(fields[2]); err != nil || len(out.salt) < minSaltLength {
		return out, errors.New("bad salt")
	}
	if out.key, err = decodeB64(fields[3]); err != nil || len(out.key) < minKeyLength {
		return out, errors.New("bad key")
	}

	p.SaltLength = uint32(len(out.salt))
	p.KeyLength = uint32(len(out.key))
	out.params = p
	return out, nil
}

// decodeB64 accepts both padded and unpadded base64; other argon2 tools differ.
func decodeB64(s string) ([]byte, error) {
	return b64.DecodeString(strings.TrimRight(s, "="))
}
