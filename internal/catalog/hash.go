package catalog

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Sha1 is a content-addressing digest. The catalog only stores and compares
// digests; it never computes them.
type Sha1 [20]byte

// ZeroSha1 is the digest of an asset whose content hash is unknown.
var ZeroSha1 Sha1

// ParseSha1 decodes a 40 character hex digest. An empty string yields ZeroSha1.
func ParseSha1(s string) (Sha1, error) {
	var h Sha1
	if s == "" {
		return h, nil
	}
	if len(s) != hex.EncodedLen(len(h)) {
		return h, fmt.Errorf("sha1 %q: want %d hex chars, got %d", s, hex.EncodedLen(len(h)), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("sha1 %q: %w", s, err)
	}
	return h, nil
}

func (h Sha1) String() string {
	return hex.EncodeToString(h[:])
}

func (h Sha1) IsZero() bool {
	return h == ZeroSha1
}

// MarshalText implements encoding.TextMarshaler.
func (h Sha1) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Sha1) UnmarshalText(b []byte) error {
	v, err := ParseSha1(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// Hash32 is the engine's 32-bit string hash: seed 5381, multiply by 33,
// xor in each byte.
func Hash32(s string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(s); i++ {
		h = (h * 33) ^ uint32(s[i])
	}
	return h
}

// NameHash hashes an asset name the way chunk owners are recorded:
// lower-cased, then Hash32.
func NameHash(name string) uint32 {
	return Hash32(strings.ToLower(name))
}
