package models

import "time"

// TokenRecord is a refresh token together with the instant it stops being accepted.
type TokenRecord struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the record is usable at now. Expiry is exclusive.
func (r TokenRecord) ValidAt(now time.Time) bool {
	return r.Token != "" && now.Before(r.ExpiresAt)
}

// RefreshSlot is the single refresh-token slot every user owns: the current
// token and, for a short grace window after a rotation, the one it replaced.
type RefreshSlot struct {
	UserID    string
	Current   TokenRecord
	Previous  *TokenRecord
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *RefreshSlot) Clone() *RefreshSlot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Previous != nil {
		p := *s.Previous
		c.Previous = &p
	}
	return &c
}
