// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// PasswordParams are the argon2id settings new hashes are written with.
// Hashes stored under other settings still verify and are upgraded on the
// next successful check.
type PasswordParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  int
}

var DefaultPasswordParams = PasswordParams{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	KeyLength:   32,
	SaltLength:  16,
}

func HashPassword(password string) (string, error) {
	return DefaultPasswordParams.Hash(password)
}

// Hash returns the PHC encoding $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (p PasswordParams) Hash(password string) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

type storedHash struct {
	params PasswordParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (*storedHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: version %q", ErrMalformedHash, fields[2])
	}

	h := &storedHash{}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&h.params.Memory, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return nil, fmt.Errorf("%w: params: %w", ErrMalformedHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %w", ErrMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return nil, fmt.Errorf("%w: key: %w", ErrMalformedHash, err)
	}

	//nolint:gosec // G115: argon2 keys are a few dozen bytes
	h.params.KeyLength = uint32(len(h.key))
	h.params.SaltLength = len(h.salt)

	return h, nil
}

func (h *storedHash) matches(password string) bool {
	p := h.params
	key := argon2.IDKey([]byte(password), h.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(h.key, key) == 1
}

// CheckPassword verifies password against an encoded hash. When the hash was
// written with outdated parameters, upgraded carries a fresh hash to store.
func CheckPassword(password, encoded string) (ok bool, upgraded string, err error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, "", err
	}
	if !h.matches(password) {
		return false, "", nil
	}

	if h.params != DefaultPasswordParams {
		if fresh, err := HashPassword(password); err == nil {
			upgraded = fresh
		}
	}
	return true, upgraded, nil
}

var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("mystic-backend-absent-account")
	if err != nil {
		panic(fmt.Sprintf("security: build dummy hash: %v", err))
	}
	return h
})

// CheckPasswordOrDummy spends the same argon2 work when there is no stored
// hash, so unknown accounts answer as slowly as known ones. A missing hash
// never verifies.
func CheckPasswordOrDummy(password string, encoded *string) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		_, _, _ = CheckPassword(password, dummyHash()) //nolint:errcheck // timing only
		return false, "", nil
	}
	return CheckPassword(password, *encoded)
}

// SecretsEqual compares two shared secrets in constant time. Both sides are
// hashed first so the comparison does not leak the expected length.
func SecretsEqual(given, expected string) bool {
	a := sha256.Sum256([]byte(given))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
