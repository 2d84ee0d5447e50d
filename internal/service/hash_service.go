package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params tunes password hashing. Stored hashes carry their own
// parameters, so changing these only affects new hashes.
type Argon2Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params is used in production.
var DefaultArgon2Params = Argon2Params{Memory: 64 * 1024, Time: 1, Threads: 4, KeyLen: 32, SaltLen: 16}

// Argon2HashService implements ports.HashService using Argon2id.
type Argon2HashService struct {
	params Argon2Params
}

// NewArgon2HashService creates a hash service with the given parameters.
func NewArgon2HashService(params Argon2Params) *Argon2HashService {
	return &Argon2HashService{params: params}
}

// Hash returns $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<hash>.
func (s *Argon2HashService) Hash(password string) (string, error) {
	p := s.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters embedded in encoded.
func (s *Argon2HashService) Verify(password string, encoded string) (bool, error) {
	p, salt, key, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the service is configured with.
func (s *Argon2HashService) NeedsRehash(encoded string) bool {
	p, _, key, err := parseArgon2(encoded)
	if err != nil {
		return true
	}
	return p.Memory < s.params.Memory || p.Time < s.params.Time || uint32(len(key)) < s.params.KeyLen
}

func parseArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return p, nil, nil, fmt.Errorf("invalid hash format: expected 6 fields, got %d", len(fields))
	}
	if fields[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("unsupported algorithm: %s", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("parsing params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decoding salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decoding hash: %w", err)
	}
	p.SaltLen, p.KeyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}
