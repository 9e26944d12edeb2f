package httpapi

import (
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=256"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
	FirstName string `json:"firstName" binding:"max=100"`
	LastName  string `json:"lastName" binding:"max=100"`
}

type RefreshRequest struct {
	AccessToken  string `json:"accessToken" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LoginResponse is returned by /login.
type LoginResponse struct {
	AccessToken        string    `json:"accessToken"`
	RefreshToken       string    `json:"refreshToken"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiry"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
}

// SessionResponse is returned by /register and /refresh.
type SessionResponse struct {
	AccessToken                string     `json:"accessToken"`
	RefreshToken               string     `json:"refreshToken"`
	RefreshTokenExpiry         time.Time  `json:"refreshTokenExpiry"`
	PreviousRefreshToken       string     `json:"previousRefreshToken,omitempty"`
	PreviousRefreshTokenExpiry *time.Time `json:"previousRefreshTokenExpiry,omitempty"`
	FirstName                  string     `json:"firstName"`
	LastName                   string     `json:"lastName"`
}

type MeResponse struct {
	Subject    string   `json:"sub"`
	Email      string   `json:"email"`
	GivenName  string   `json:"givenName"`
	FamilyName string   `json:"familyName"`
	Roles      []string `json:"roles"`
}

func toLoginResponse(s *services.Session) LoginResponse {
	return LoginResponse{
		AccessToken:        s.AccessToken,
		RefreshToken:       s.RefreshToken,
		RefreshTokenExpiry: s.RefreshTokenExpiry,
		FirstName:          s.FirstName,
		LastName:           s.LastName,
	}
}

func toSessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{
		AccessToken:                s.AccessToken,
		RefreshToken:               s.RefreshToken,
		RefreshTokenExpiry:         s.RefreshTokenExpiry,
		PreviousRefreshToken:       s.PreviousRefreshToken,
		PreviousRefreshTokenExpiry: s.PreviousRefreshTokenExpiry,
		FirstName:                  s.FirstName,
		LastName:                   s.LastName,
	}
}
