package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncoder(now time.Time) *Encoder {
	e := NewEncoder([]byte("super-secret"), "tk", "tk-clients")
	e.now = func() time.Time { return now }
	return e
}

var alice = &ClaimSet{
	Subject:    "user-123",
	Email:      "Alice@Example.com",
	GivenName:  "Alice",
	FamilyName: "Liddell",
	Roles:      []string{"user"},
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := newTestEncoder(now)

	tok, err := e.Encode(alice, now.Add(time.Hour))
	require.NoError(t, err)

	got, err := e.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestDecode_AcceptsExpiredToken(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := newTestEncoder(now.Add(-2 * time.Hour))

	tok, err := e.Encode(alice, now.Add(-time.Hour))
	require.NoError(t, err)

	got, err := e.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, got.Email)

	_, err = e.Validate(tok, now)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	e := newTestEncoder(time.Now())
	other := NewEncoder([]byte("other-secret"), "tk", "tk-clients")

	forged, err := other.Encode(alice, time.Now().Add(time.Hour))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":     "not-a-jwt",
		"empty":       "",
		"wrong key":   forged,
		"alg none":    none,
		"three parts": "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := e.Decode(tok)
			assert.True(t, errors.Is(err, common.ErrMalformedToken), "got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := newTestEncoder(now)

	tok, err := e.Encode(alice, now.Add(time.Minute))
	require.NoError(t, err)

	got, err := e.Validate(tok, now)
	require.NoError(t, err)
	assert.Equal(t, alice.Subject, got.Subject)

	t.Run("wrong audience", func(t *testing.T) {
		strict := NewEncoder([]byte("super-secret"), "tk", "someone-else")
		_, err := strict.Validate(tok, now)
		assert.ErrorIs(t, err, common.ErrMalformedToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		strict := NewEncoder([]byte("super-secret"), "other", "tk-clients")
		_, err := strict.Validate(tok, now)
		assert.ErrorIs(t, err, common.ErrMalformedToken)
	})

	t.Run("expired at boundary", func(t *testing.T) {
		_, err := e.Validate(tok, now.Add(2*time.Minute))
		assert.ErrorIs(t, err, common.ErrTokenExpired)
	})
}

func TestEncode_NilClaims(t *testing.T) {
	_, err := newTestEncoder(time.Now()).Encode(nil, time.Now())
	assert.ErrorIs(t, err, common.ErrClaimsBuildFailure)
}
