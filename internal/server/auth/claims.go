// Package auth assembles identity claims and encodes them as signed access
// tokens.
package auth

import (
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// ClaimSet is the identity carried by an access token.
type ClaimSet struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Roles      []string
}

// IssueClaims projects a user record onto a ClaimSet. It does no I/O.
// A record without id or email is a server-side fault and yields
// common.ErrClaimsBuildFailure.
func IssueClaims(u *models.User) (*ClaimSet, error) {
	if u == nil {
		return nil, fmt.Errorf("nil user: %w", common.ErrClaimsBuildFailure)
	}
	if u.ID == "" || u.Email == "" {
		return nil, fmt.Errorf("user %q lacks id or email: %w", u.ID, common.ErrClaimsBuildFailure)
	}

	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)

	return &ClaimSet{
		Subject:    u.ID,
		Email:      u.Email,
		GivenName:  u.FirstName,
		FamilyName: u.LastName,
		Roles:      roles,
	}, nil
}
