// Package api is a small HTTP client for the tokenkeeper account API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

const accountPath = "/api/v1/identity/account"

// ErrUnavailable means the server could not be reached.
var ErrUnavailable = errors.New("server unavailable")

// Problem mirrors the server's error body.
type Problem struct {
	Type    string              `json:"type"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	TraceID string              `json:"traceId"`
	Detail  string              `json:"detail"`
	Errors  map[string][]string `json:"errors"`
}

// Error renders the problem as one line, field errors included.
func (p *Problem) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", p.Status, p.Title)
	if p.Detail != "" {
		b.WriteString(": " + p.Detail)
	}
	for field, msgs := range p.Errors {
		fmt.Fprintf(&b, "; %s: %s", field, strings.Join(msgs, ", "))
	}
	return b.String()
}

type Session struct {
	AccessToken                string     `json:"accessToken"`
	RefreshToken               string     `json:"refreshToken"`
	RefreshTokenExpiry         time.Time  `json:"refreshTokenExpiry"`
	PreviousRefreshToken       string     `json:"previousRefreshToken,omitempty"`
	PreviousRefreshTokenExpiry *time.Time `json:"previousRefreshTokenExpiry,omitempty"`
	FirstName                  string     `json:"firstName"`
	LastName                   string     `json:"lastName"`
}

type Profile struct {
	Subject    string   `json:"sub"`
	Email      string   `json:"email"`
	GivenName  string   `json:"givenName"`
	FamilyName string   `json:"familyName"`
	Roles      []string `json:"roles"`
}

type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Client for the server at baseURL, e.g.
// http://127.0.0.1:8080.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/") + accountPath,
		http: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Register(ctx context.Context, email, password, firstName, lastName string) (*Session, error) {
	var s Session
	body := map[string]string{
		"email":     email,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
	}
	if err := c.do(ctx, http.MethodPost, "/register", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	var s Session
	body := map[string]string{"accessToken": accessToken, "refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/refresh", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Me returns the claims of accessToken as seen by the server.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/me", accessToken, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// do sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses are returned as *Problem.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p := &Problem{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(resp.Body).Decode(p)
		return p
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
