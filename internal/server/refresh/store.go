// Package refresh implements the single-slot refresh token protocol: every
// user owns one slot holding the current token and, for a short grace
// window after a rotation, the token it replaced.
package refresh

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshslots"
)

// DefaultMaxRetries bounds how often a slot is re-read after losing a
// compare-and-swap.
const DefaultMaxRetries = 3

// TokenBytes is the entropy of a refresh token before hex encoding.
const TokenBytes = 32

// SlotRepos yields a slot repository bound to db. repomanager.RepositoryManager
// satisfies it.
type SlotRepos interface {
	RefreshSlots(db dbx.DBTX) refreshslots.Repository
}

// Options configures a Store.
type Options struct {
	// Lifetime of a freshly minted current token.
	Lifetime time.Duration
	// Grace is how long a rotated-out token stays acceptable.
	Grace time.Duration
	// MaxRetries after a lost compare-and-swap; zero means DefaultMaxRetries.
	MaxRetries int
}

// Store applies the rotation rules on top of a slot repository.
type Store struct {
	repos    SlotRepos
	handle   dbx.DBTX
	lifetime time.Duration
	grace    time.Duration
	retries  int
	newToken func() (string, error)
	log      logging.Logger
}

// NewStore returns a Store that reads and rotates slots through
// repos.RefreshSlots(handle).
func NewStore(repos SlotRepos, handle dbx.DBTX, opts Options, log logging.Logger) *Store {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{
		repos:    repos,
		handle:   handle,
		lifetime: opts.Lifetime,
		grace:    opts.Grace,
		retries:  opts.MaxRetries,
		newToken: func() (string, error) { return common.MakeRandHexString(TokenBytes) },
		log:      log,
	}
}

type match int

const (
	matchNone match = iota
	matchCurrent
	matchPrevious
	matchBoth
)

func matchSlot(slot *models.RefreshSlot, supplied string, now time.Time) match {
	m := matchNone
	if tokenMatches(slot.Current, supplied, now) {
		m = matchCurrent
	}
	if slot.Previous != nil && tokenMatches(*slot.Previous, supplied, now) {
		if m == matchCurrent {
			return matchBoth
		}
		m = matchPrevious
	}
	return m
}

func tokenMatches(r models.TokenRecord, supplied string, now time.Time) bool {
	return r.ValidAt(now) && subtle.ConstantTimeCompare([]byte(r.Token), []byte(supplied)) == 1
}

// Rotate validates supplied against the user's slot at now.
//
// A match on the current token rotates the slot: the current token becomes
// previous with a grace expiry and a new current token is minted. A match on
// the previous token only returns the stored slot unchanged, so a client that
// retries a request whose rotation already happened gets the same pair back.
// No match yields common.ErrNoValidToken; a match on both positions yields
// common.ErrAmbiguousRefreshState. Nothing is written in either failure case.
//
// The write is a compare-and-swap on the current token read. When another
// rotation wins the race the slot is read again and re-evaluated.
func (s *Store) Rotate(ctx context.Context, userID, supplied string, now time.Time) (*models.RefreshSlot, error) {
	repo := s.repos.RefreshSlots(s.handle)

	for attempt := 0; attempt <= s.retries; attempt++ {
		slot, err := repo.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrNoValidToken
			}
			return nil, fmt.Errorf("error reading refresh slot: %w", err)
		}

		switch matchSlot(slot, supplied, now) {
		case matchNone:
			return nil, common.ErrNoValidToken
		case matchBoth:
			s.log.Error(ctx, "refresh slot has two valid matching tokens", "user_id", userID)
			return nil, common.ErrAmbiguousRefreshState
		case matchPrevious:
			return slot, nil
		}

		token, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("error generating refresh token: %w", err)
		}
		next := &models.RefreshSlot{
			UserID:    userID,
			Current:   models.TokenRecord{Token: token, ExpiresAt: now.Add(s.lifetime)},
			Previous:  &models.TokenRecord{Token: slot.Current.Token, ExpiresAt: now.Add(s.grace)},
			UpdatedAt: now,
		}

		ok, err := repo.CompareAndSwap(ctx, slot.Current.Token, next)
		if err != nil {
			return nil, fmt.Errorf("error rotating refresh slot: %w", err)
		}
		if ok {
			return next, nil
		}
		s.log.Debug(ctx, "refresh slot changed concurrently, re-reading", "user_id", userID, "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: %w", common.ErrNoValidToken, common.ErrSlotConflict)
}

// CreateInitial writes a slot with a fresh current token and no previous
// token through a repository bound to db, so it can join the caller's
// transaction.
func (s *Store) CreateInitial(ctx context.Context, db dbx.DBTX, userID string, now time.Time) (*models.RefreshSlot, error) {
	slot, err := s.fresh(userID, now)
	if err != nil {
		return nil, err
	}
	if err := s.repos.RefreshSlots(db).Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("error creating refresh slot: %w", err)
	}
	return slot, nil
}

// Current returns the slot to hand out at login. It never rotates: a still
// valid current token is reused as is. A missing slot is created and an
// expired current token is replaced by a fresh one with no previous token.
func (s *Store) Current(ctx context.Context, userID string, now time.Time) (*models.RefreshSlot, error) {
	repo := s.repos.RefreshSlots(s.handle)

	for attempt := 0; attempt <= s.retries; attempt++ {
		slot, err := repo.Get(ctx, userID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			fresh, err := s.fresh(userID, now)
			if err != nil {
				return nil, err
			}
			err = repo.Create(ctx, fresh)
			if err == nil {
				return fresh, nil
			}
			if !errors.Is(err, common.ErrorAlreadyExists) {
				return nil, fmt.Errorf("error creating refresh slot: %w", err)
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("error reading refresh slot: %w", err)
		}

		if slot.Current.ValidAt(now) {
			return slot, nil
		}

		fresh, err := s.fresh(userID, now)
		if err != nil {
			return nil, err
		}
		ok, err := repo.CompareAndSwap(ctx, slot.Current.Token, fresh)
		if err != nil {
			return nil, fmt.Errorf("error renewing refresh slot: %w", err)
		}
		if ok {
			return fresh, nil
		}
	}

	return nil, common.ErrSlotConflict
}

func (s *Store) fresh(userID string, now time.Time) (*models.RefreshSlot, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	return &models.RefreshSlot{
		UserID:    userID,
		Current:   models.TokenRecord{Token: token, ExpiresAt: now.Add(s.lifetime)},
		UpdatedAt: now,
	}, nil
}
