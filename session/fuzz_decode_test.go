package session

import "testing"

// FuzzSessionDecode feeds arbitrary payloads to the record decoder.
// Decode must never panic; anything it accepts must re-encode.
func FuzzSessionDecode(f *testing.F) {
	rec := &Record{
		UserID:         "42",
		CSRFToken:      "0b6f6c1e-3f0a-4f44-9d0e-5c1c1d3c2a10",
		RefreshTokenID: "c0a1f2d3-0000-4000-8000-000000000001",
		IssuedAt:       1700000000,
		ExpiresAt:      1700086400,
	}
	encoded, err := Encode(rec)
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)-1])
		f.Add(append(append([]byte{}, encoded...), 0))
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{CurrentSchemaVersion})
	f.Add([]byte{CurrentSchemaVersion, 255})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(r); err != nil {
			t.Fatalf("decoded record failed to re-encode: %v", err)
		}
	})
}
