package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload: registered claims plus the identity fields.
type Claims struct {
	jwt.RegisteredClaims
	Email      string   `json:"email,omitempty"`
	GivenName  string   `json:"given_name,omitempty"`
	FamilyName string   `json:"family_name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
}

func (c *Claims) claimSet() *ClaimSet {
	return &ClaimSet{
		Subject:    c.Subject,
		Email:      c.Email,
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Roles:      c.Roles,
	}
}

// Encoder signs and parses HS256 access tokens with one process-wide secret.
type Encoder struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewEncoder returns an Encoder. Issuer and audience are written into every
// token and required by Validate; empty values disable the respective check.
func NewEncoder(secret []byte, issuer, audience string) *Encoder {
	return &Encoder{secret: secret, issuer: issuer, audience: audience, now: time.Now}
}

// Encode signs claims into a compact JWT expiring at expiresAt.
func (e *Encoder) Encode(c *ClaimSet, expiresAt time.Time) (string, error) {
	if c == nil {
		return "", common.ErrClaimsBuildFailure
	}

	rc := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   c.Subject,
		Issuer:    e.issuer,
		IssuedAt:  jwt.NewNumericDate(e.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	if e.audience != "" {
		rc.Audience = jwt.ClaimStrings{e.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: rc,
		Email:            c.Email,
		GivenName:        c.GivenName,
		FamilyName:       c.FamilyName,
		Roles:            c.Roles,
	})

	s, err := token.SignedString(e.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Decode checks the signature and structure of token and returns its claims.
// Expiry and the other time-based claims are deliberately not checked: the
// refresh flow must accept an expired access token.
func (e *Encoder) Decode(token string) (*ClaimSet, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, e.key,
		jwt.WithoutClaimsValidation(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
	return claims.claimSet(), nil
}

// Validate fully verifies token at now, including expiry, issuer and
// audience. Expired tokens yield common.ErrTokenExpired; anything else
// invalid yields common.ErrMalformedToken.
func (e *Encoder) Validate(token string, now time.Time) (*ClaimSet, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if e.issuer != "" {
		opts = append(opts, jwt.WithIssuer(e.issuer))
	}
	if e.audience != "" {
		opts = append(opts, jwt.WithAudience(e.audience))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, e.key, opts...); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
	return claims.claimSet(), nil
}

func (e *Encoder) key(*jwt.Token) (any, error) {
	return e.secret, nil
}
