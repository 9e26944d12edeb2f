package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/api"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// AuthAPI is the subset of the account API the CLI drives.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.Session, error)
	Register(ctx context.Context, email, password, firstName, lastName string) (*api.Session, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*api.Session, error)
	Me(ctx context.Context, accessToken string) (*api.Profile, error)
}

type App struct {
	config  *config.Config
	api     AuthAPI
	session *api.Session
	email   string
	Mode    Mode
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	client, err := api.NewClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return &App{config: c, api: client, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

// Run blocks in the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to tokenkeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) getStatus() string {
	s := a.email
	if a.Mode != "" {
		if s != "" {
			s += " "
		}
		s += string(a.Mode)
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}
