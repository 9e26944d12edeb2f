package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast
var testParams = Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt, DefaultParams)
	key2 := DeriveKey(password, salt, DefaultParams)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	// snapshot
	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"), testParams)
	key2 := DeriveKey(password, []byte("salt-2"), testParams)

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestHashPassword_Format(t *testing.T) {
	h, err := HashPassword("pa55word", testParams)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=1024,t=1,p=1$"), h)
	assert.Len(t, strings.Split(h, "$"), 6)

	h2, err := HashPassword("pa55word", testParams)
	require.NoError(t, err)
	assert.NotEqual(t, h, h2, "salt must differ between calls")
}

func TestVerifyPassword(t *testing.T) {
	h, err := HashPassword("correct horse", testParams)
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse", h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("battery staple", h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"wrong alg":    "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"bad version":  "$argon2id$v=1$m=1024,t=1,p=1$c2FsdA$a2V5",
		"bad params":   "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"bad salt b64": "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"empty key":    "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
		"too few":      "$argon2id$v=19$c2FsdA$a2V5",
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := VerifyPassword("x", h)
			assert.False(t, ok)
			assert.True(t, errors.Is(err, ErrInvalidHash), "got %v", err)
		})
	}
}
