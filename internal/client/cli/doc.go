// Package cli provides the interactive tokenkeeper command-line client.
//
// It keeps the last session returned by the server in memory and offers
// register, login, refresh, whoami and logout commands through a small REPL.
// whoami refreshes the session once when the access token has expired.
package cli
