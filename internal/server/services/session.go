// Package services contains server-side business logic. SessionService
// implements the account protocol: login, registration and refresh-token
// rotation, issuing a signed access token with every refresh token.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/cryptox"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/refresh"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
)

// Session is what a client receives after login, registration or refresh.
type Session struct {
	AccessToken                string
	RefreshToken               string
	RefreshTokenExpiry         time.Time
	PreviousRefreshToken       string
	PreviousRefreshTokenExpiry *time.Time
	FirstName                  string
	LastName                   string
}

// SessionService coordinates credential checks, claims, access tokens and
// the refresh slot store.
type SessionService struct {
	tx         dbx.Transactor
	repos      repomanager.RepositoryManager
	verifier   *CredentialVerifier
	store      *refresh.Store
	encoder    *auth.Encoder
	delayer    Delayer
	accessTTL  time.Duration
	hashParams cryptox.Params
	now        func() time.Time
	log        logging.Logger
}

// NewSessionService wires a SessionService from the server config.
func NewSessionService(tx dbx.Transactor, rm repomanager.RepositoryManager, enc *auth.Encoder, cfg *config.Config, log logging.Logger) (*SessionService, error) {
	return newSessionService(tx, rm, enc, cfg, cryptox.DefaultParams, log)
}

func newSessionService(tx dbx.Transactor, rm repomanager.RepositoryManager, enc *auth.Encoder, cfg *config.Config, params cryptox.Params, log logging.Logger) (*SessionService, error) {
	verifier, err := NewCredentialVerifier(rm, tx.Handle(), params)
	if err != nil {
		return nil, err
	}
	store := refresh.NewStore(rm, tx.Handle(), refresh.Options{
		Lifetime: cfg.RefreshTokenValidityDuration,
		Grace:    cfg.RefreshGraceDuration,
	}, log)

	return &SessionService{
		tx:         tx,
		repos:      rm,
		verifier:   verifier,
		store:      store,
		encoder:    enc,
		delayer:    NewRandomDelayer(cfg.FailureDelayMin, cfg.FailureDelayMax),
		accessTTL:  cfg.AccessTokenValidityDuration,
		hashParams: params,
		now:        time.Now,
		log:        log,
	}, nil
}

// Login verifies credentials and returns a session reusing the user's
// current refresh token when it is still valid. Any credential failure is
// reported as common.ErrInvalidCredentials after a randomized delay.
func (s *SessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.delayer.Delay(ctx)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	slot, err := s.store.Current(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("error obtaining refresh token: %w", err)
	}

	sess, err := s.session(user, slot, now)
	if err != nil {
		return nil, err
	}
	// login hands out the current token only
	sess.PreviousRefreshToken, sess.PreviousRefreshTokenExpiry = "", nil

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return sess, nil
}

// Register creates the user and its refresh slot in one transaction. A taken
// email yields common.ErrDuplicateRegistration after a randomized delay.
func (s *SessionService) Register(ctx context.Context, email, password, firstName, lastName string) (*Session, error) {
	_, err := s.repos.Users(s.tx.Handle()).GetByEmail(ctx, common.NormalizeEmail(email))
	switch {
	case err == nil:
		s.delayer.Delay(ctx)
		return nil, common.ErrDuplicateRegistration
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := cryptox.HashPassword(password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Roles:        []string{common.DefaultRole},
	}

	var slot *models.RefreshSlot
	err = s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repos.Users(tx).Create(ctx, user); err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		var err error
		slot, err = s.store.CreateInitial(ctx, tx, user.ID, now)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.delayer.Delay(ctx)
			return nil, common.ErrDuplicateRegistration
		}
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return s.session(user, slot, now)
}

// Refresh exchanges an access token (expired or not) plus a refresh token
// for a new session. The access token only identifies the user; the refresh
// token is what authorizes the exchange.
func (s *SessionService) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	claims, err := s.encoder.Decode(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: no email claim", common.ErrMalformedToken)
	}

	user, err := s.repos.Users(s.tx.Handle()).GetByEmail(ctx, common.NormalizeEmail(claims.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownSubject
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	now := s.now()
	slot, err := s.store.Rotate(ctx, user.ID, refreshToken, now)
	if err != nil {
		if errors.Is(err, common.ErrAmbiguousRefreshState) {
			s.log.Error(ctx, "ambiguous refresh state", "user_id", user.ID)
		}
		return nil, err
	}

	return s.session(user, slot, now)
}

func (s *SessionService) session(user *models.User, slot *models.RefreshSlot, now time.Time) (*Session, error) {
	claims, err := auth.IssueClaims(user)
	if err != nil {
		return nil, err
	}
	access, err := s.encoder.Encode(claims, now.Add(s.accessTTL))
	if err != nil {
		return nil, fmt.Errorf("error encoding access token: %w", err)
	}

	sess := &Session{
		AccessToken:        access,
		RefreshToken:       slot.Current.Token,
		RefreshTokenExpiry: slot.Current.ExpiresAt,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
	}
	if slot.Previous != nil {
		exp := slot.Previous.ExpiresAt
		sess.PreviousRefreshToken = slot.Previous.Token
		sess.PreviousRefreshTokenExpiry = &exp
	}
	return sess, nil
}
