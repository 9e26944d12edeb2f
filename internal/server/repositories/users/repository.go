// Package users declares the server-side repository contract for user
// accounts and provides PostgreSQL and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Repository stores user accounts keyed by normalized email.
type Repository interface {
	// Create persists user with its roles and returns it with ID and
	// CreatedAt filled in. A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by normalized email and returns
	// common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
