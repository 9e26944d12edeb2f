package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/api"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// Input indirections swapped in tests.
var (
	getSimpleText  = GetSimpleText
	getPassword    = GetPassword
	getNewPassword = GetNewPassword
)

// Register prompts for email, password and names, creates the account and
// keeps the returned session.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getNewPassword(a.out)
	if err != nil {
		return a.fail("Registration unsuccessful", err)
	}
	defer common.WipeByteArray(password)

	firstName, err := getSimpleText(a.reader, "Enter first name", a.out)
	if err != nil {
		return err
	}
	lastName, err := getSimpleText(a.reader, "Enter last name", a.out)
	if err != nil {
		return err
	}

	s, err := a.api.Register(ctx, email, string(password), firstName, lastName)
	if err != nil {
		return a.fail("Registration unsuccessful", err)
	}

	a.start(email, s)
	printlnFn("Success!")
	return nil
}

// Login prompts for credentials and keeps the returned session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return a.fail("Login unsuccessful", err)
	}

	a.start(email, s)
	printlnFn(fmt.Sprintf("Welcome, %s %s", s.FirstName, s.LastName))
	return nil
}

// Refresh exchanges the stored token pair for a new one.
func (a *App) Refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.fail("Refresh unsuccessful", errNotLoggedIn)
	}

	s, err := a.api.Refresh(ctx, a.session.AccessToken, a.session.RefreshToken)
	if err != nil {
		return a.fail("Refresh unsuccessful", err)
	}

	a.session = s
	a.setMode(ModeOnline)
	printlnFn(fmt.Sprintf("Refresh token valid until %s", s.RefreshTokenExpiry.Local().Format("2006-01-02 15:04:05")))
	return nil
}

// WhoAmI prints the server's view of the current access token, refreshing
// once if the server rejects it as unauthorized.
func (a *App) WhoAmI(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.fail("whoami unsuccessful", errNotLoggedIn)
	}

	p, err := a.api.Me(ctx, a.session.AccessToken)
	var prob *api.Problem
	if errors.As(err, &prob) && prob.Status == http.StatusUnauthorized {
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		p, err = a.api.Me(ctx, a.session.AccessToken)
	}
	if err != nil {
		return a.fail("whoami unsuccessful", err)
	}

	a.setMode(ModeOnline)
	printlnFn(fmt.Sprintf("%s <%s> id=%s roles=%v", joinName(p.GivenName, p.FamilyName), p.Email, p.Subject, p.Roles))
	return nil
}

// Logout forgets the session locally. Tokens stay valid on the server until
// they expire.
func (a *App) Logout(context.Context) error {
	a.session = nil
	a.email = ""
	printlnFn("Logged out")
	return nil
}

var errNotLoggedIn = errors.New("not logged in")

func (a *App) start(email string, s *api.Session) {
	a.session = s
	a.email = email
	a.setMode(ModeOnline)
}

func (a *App) fail(what string, err error) error {
	if errors.Is(err, api.ErrUnavailable) {
		a.setMode(ModeOffline)
	}
	log.Printf("%s: %s", what, err.Error())
	return err
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
