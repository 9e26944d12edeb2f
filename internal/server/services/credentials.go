package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
)

// CredentialVerifier checks an email/password pair against stored users.
type CredentialVerifier struct {
	repos  repomanager.RepositoryManager
	handle dbx.DBTX
	// dummyHash is verified against on a miss so a lookup miss costs the
	// same argon2id derivation as a password mismatch.
	dummyHash string
}

// NewCredentialVerifier prepares a verifier; params must match the cost used
// for stored hashes.
func NewCredentialVerifier(repos repomanager.RepositoryManager, handle dbx.DBTX, params cryptox.Params) (*CredentialVerifier, error) {
	secret, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	dummy, err := cryptox.HashPassword(secret, params)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &CredentialVerifier{repos: repos, handle: handle, dummyHash: dummy}, nil
}

// Verify returns the user owning email if password matches. Unknown email
// and wrong password both yield common.ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := v.repos.Users(v.handle).GetByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.VerifyPassword(password, v.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("stored hash for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}
