package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// CurrentSchemaVersion is the record layout written by [Encode].
const CurrentSchemaVersion uint8 = 1

const maxFieldLen = 255

var (
	// ErrMalformedRecord is returned when a decrypted payload cannot be decoded.
	ErrMalformedRecord = errors.New("malformed session record")
	// ErrUnsupportedSchemaVersion is returned for a schema byte this build does not know.
	ErrUnsupportedSchemaVersion = errors.New("unsupported session schema version")
)

// Encode serializes r using the current schema version.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil session record")
	}

	var buf bytes.Buffer
	buf.Grow(3 + len(r.UserID) + len(r.CSRFToken) + len(r.RefreshTokenID) + 1 + 16)

	buf.WriteByte(CurrentSchemaVersion)

	if err := writeField(&buf, "userID", r.UserID); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "csrfToken", r.CSRFToken); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "refreshTokenID", r.RefreshTokenID); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, r.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a payload produced by [Encode]. Every structural problem is reported
// as [ErrMalformedRecord] or [ErrUnsupportedSchemaVersion].
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, version)
	}

	r := &Record{SchemaVersion: version}

	if r.UserID, err = readField(reader); err != nil {
		return nil, err
	}
	if r.CSRFToken, err = readField(reader); err != nil {
		return nil, err
	}
	if r.RefreshTokenID, err = readField(reader); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &r.IssuedAt); err != nil {
		return nil, fmt.Errorf("%w: issuedAt: %v", ErrMalformedRecord, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: expiresAt: %v", ErrMalformedRecord, err)
	}

	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedRecord, reader.Len())
	}
	if r.UserID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrMalformedRecord)
	}

	return r, nil
}

func writeField(buf *bytes.Buffer, name, v string) error {
	if len(v) > maxFieldLen {
		return fmt.Errorf("%s too long", name)
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readField(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: field length: %v", ErrMalformedRecord, err)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", fmt.Errorf("%w: field body: %v", ErrMalformedRecord, err)
	}
	return string(out), nil
}
