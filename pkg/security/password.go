// Package security implements credential hashing for seller accounts.
// Hashes use Argon2id in the standard modular crypt format, with the cost
// parameters embedded so they can be raised later without invalidating
// existing rows.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/bitetrack/bitetrack-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash that does not parse as Argon2id.
var ErrInvalidHash = fmt.Errorf("invalid argon2id hash")

// argonParams are the cost parameters carried inside each encoded hash.
type argonParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

// Cost bounds. Config values outside these ranges are clamped rather than
// rejected so a typo in an env var degrades cost instead of breaking login.
const (
	minMemoryKB = 8
	maxMemoryKB = 512 * 1024
	minTime     = 1
	maxTime     = 10
	minSaltLen  = 8
	maxSaltLen  = 64
	minKeyLen   = 16
	maxKeyLen   = 64
)

// HashPassword derives an Argon2id hash of password and returns it in
// modular crypt format: $argon2id$v=19$m=..,t=..,p=..$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}

	params := costFromConfig(cfg)
	salt := make([]byte, params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := deriveKey(password, salt, params)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.memory, params.time, params.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword re-derives the key with the parameters stored in encoded
// and compares in constant time. A mismatch is (false, nil); only a
// malformed hash produces an error.
func VerifyPassword(password, encoded string) (bool, error) {
	dec, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	computed := deriveKey(password, dec.salt, dec.params)
	return subtle.ConstantTimeCompare(dec.key, computed) == 1, nil
}

func deriveKey(password string, salt []byte, params argonParams) []byte {
	return argon2.IDKey([]byte(password), salt, params.time, params.memory, params.parallelism, params.keyLen)
}

func costFromConfig(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:      uint32(clamp(cfg.ArgonMemoryKB, minMemoryKB, maxMemoryKB)),
		time:        uint32(clamp(cfg.ArgonTime, minTime, maxTime)),
		parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen:     uint32(clamp(cfg.ArgonSaltLen, minSaltLen, maxSaltLen)),
		keyLen:      uint32(clamp(cfg.ArgonKeyLen, minKeyLen, maxKeyLen)),
	}
}

// decodedHash bundles everything parsed out of one modular crypt string.
type decodedHash struct {
	params argonParams
	salt   []byte
	key    []byte
}

// decodeHash parses a modular crypt string. The version segment must match
// the argon2 build in use.
func decodeHash(encoded string) (decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return decodedHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return decodedHash{}, ErrInvalidHash
	}

	var dec decodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &dec.params.memory, &dec.params.time, &dec.params.parallelism); err != nil {
		return decodedHash{}, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return decodedHash{}, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return decodedHash{}, ErrInvalidHash
	}

	dec.salt = salt
	dec.key = key
	dec.params.saltLen = uint32(len(salt))
	dec.params.keyLen = uint32(len(key))
	return dec, nil
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
