// Package models defines server-side data models persisted by repositories.
package models

import "time"

// User is a registered account.
type User struct {
	ID string
	// Email keeps the form the user registered with; lookups use the
	// normalized form.
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Roles        []string
	CreatedAt    time.Time
}
