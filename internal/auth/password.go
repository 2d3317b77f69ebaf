// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// SaltLength is the size of generated salts in bytes.
const SaltLength = 16

// MinPasswordLength is the shortest password IsStrong accepts.
const MinPasswordLength = 8

// tokenAlphabet is the character set RandomToken draws from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// Argon2Params are the argon2id cost parameters encoded into every digest.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2Params follows the OWASP argon2id recommendation.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

// PasswordCodec derives and checks password digests. The salt is kept
// apart from the digest so it can live in its own column.
type PasswordCodec interface {
	// GenerateSalt returns SaltLength random bytes.
	GenerateSalt() ([]byte, error)

	// Hash is deterministic for a given password, salt and codec.
	Hash(password string, salt []byte) (string, error)

	// Verify returns (true, nil) on match, (false, nil) on mismatch and an
	// error only for a malformed digest.
	Verify(password, digest string, salt []byte) (bool, error)

	// NeedsRehash reports whether digest was made with other parameters.
	NeedsRehash(digest string) bool
}

// Argon2Codec implements PasswordCodec with argon2id.
//
// Digests have the form $argon2id$v=19$m=65536,t=1,p=4$<key>. The salt is
// not embedded.
type Argon2Codec struct {
	params Argon2Params
}

// NewArgon2Codec creates a codec using params.
func NewArgon2Codec(params Argon2Params) *Argon2Codec {
	return &Argon2Codec{params: params}
}

// GenerateSalt returns a fresh random salt.
func (c *Argon2Codec) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	return salt, nil
}

// Hash derives the digest of password under salt.
func (c *Argon2Codec) Hash(password string, salt []byte) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(salt) == 0 {
		return "", oops.Code("AUTH_INVALID_SALT").Errorf("salt cannot be empty")
	}

	p := c.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return encodeDigest(p, key), nil
}

// Verify re-derives the key with the parameters recorded in digest and
// compares in constant time.
func (c *Argon2Codec) Verify(password, digest string, salt []byte) (bool, error) {
	p, expected, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsRehash is true when digest is malformed or uses other parameters.
func (c *Argon2Codec) NeedsRehash(digest string) bool {
	p, _, err := decodeDigest(digest)
	return err != nil || p != c.params
}

func encodeDigest(p Argon2Params, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeDigest(digest string) (Argon2Params, []byte, error) {
	var p Argon2Params

	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "" {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid digest format")
	}
	if parts[1] != "argon2id" {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &threads); err != nil {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}
	p.Threads = uint8(threads)

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1024 {
		return p, nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid key length: %d", len(key))
	}
	p.KeyLen = uint32(len(key))

	return p, key, nil
}

// IsStrong reports whether password has at least MinPasswordLength
// characters including an uppercase letter, a lowercase letter and a digit.
func IsStrong(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// RandomToken returns length characters drawn uniformly from
// letters, digits and !@#$%^&*.
func RandomToken(length int) (string, error) {
	if length < 0 {
		return "", oops.Code("AUTH_TOKEN_INVALID_LENGTH").Errorf("length must be non-negative, got %d", length)
	}

	size := big.NewInt(int64(len(tokenAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").Wrap(err)
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return b.String(), nil
}
