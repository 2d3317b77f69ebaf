// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/admindesk/pkg/errutil"
)

// testParams keeps key derivation fast in tests.
var testParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32}

func TestArgon2Codec_HashIsDeterministic(t *testing.T) {
	codec := NewArgon2Codec(testParams)
	salt, err := codec.GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, SaltLength)

	a, err := codec.Hash("Secret123", salt)
	require.NoError(t, err)
	b, err := codec.Hash("Secret123", salt)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$argon2id$v=19$m=1024,t=1,p=1$"))

	other, err := codec.GenerateSalt()
	require.NoError(t, err)
	c, err := codec.Hash("Secret123", other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different salts must give different digests")
}

func TestArgon2Codec_Verify(t *testing.T) {
	codec := NewArgon2Codec(testParams)
	salt, err := codec.GenerateSalt()
	require.NoError(t, err)
	digest, err := codec.Hash("Secret123", salt)
	require.NoError(t, err)

	ok, err := codec.Verify("Secret123", digest, salt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codec.Verify("secret123", digest, salt)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = codec.Verify("Secret123", digest, []byte("another-salt-xyz"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Codec_Errors(t *testing.T) {
	codec := NewArgon2Codec(testParams)

	_, err := codec.Hash("", []byte("salt"))
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = codec.Hash("Secret123", nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_SALT")

	tests := []struct {
		name   string
		digest string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=1024,t=1,p=1$AAAA"},
		{"wrong version", "$argon2id$v=16$m=1024,t=1,p=1$AAAA"},
		{"bad params", "$argon2id$v=19$garbage$AAAA"},
		{"zero threads", "$argon2id$v=19$m=1024,t=1,p=0$AAAA"},
		{"bad base64", "$argon2id$v=19$m=1024,t=1,p=1$!!!"},
		{"too few parts", "$argon2id$v=19$AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify("Secret123", tt.digest, []byte("salt"))
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}

func TestArgon2Codec_NeedsRehash(t *testing.T) {
	codec := NewArgon2Codec(testParams)
	digest, err := codec.Hash("Secret123", []byte("0123456789abcdef"))
	require.NoError(t, err)

	assert.False(t, codec.NeedsRehash(digest))
	assert.True(t, NewArgon2Codec(DefaultArgon2Params()).NeedsRehash(digest))
	assert.True(t, codec.NeedsRehash("not a digest"))
}

func TestIsStrong(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Secret123", true},
		{"Abcdefg1", true},
		{"Abcdef1", false},
		{"secret123", false},
		{"SECRET123", false},
		{"SecretOne", false},
		{"", false},
		{"Ünïcödé9x", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrong(tt.password))
		})
	}
}

func TestRandomToken(t *testing.T) {
	tok, err := RandomToken(RememberTokenLength)
	require.NoError(t, err)
	assert.Equal(t, RememberTokenLength, utf8.RuneCountInString(tok))
	for _, r := range tok {
		assert.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected rune %q", r)
	}

	other, err := RandomToken(RememberTokenLength)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)

	empty, err := RandomToken(0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = RandomToken(-1)
	errutil.AssertErrorCode(t, err, "AUTH_TOKEN_INVALID_LENGTH")
}
