package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-b", "-r", "-s",
	"-issuer", "-audience", "-access-ttl", "-refresh-ttl", "-grace",
	"-delay-min", "-delay-max", "-log-format", "-log-level",
}

// parseFlags overrides Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":8080")
//	-g string          gRPC health bind address
//	-d string          PostgreSQL DSN
//	-b string          refresh slot storage: postgres | redis | memory
//	-r string          Redis address
//	-s string          access token HMAC secret
//	-issuer string     token issuer
//	-audience string   token audience
//	-access-ttl dur    access token lifetime (e.g., "15m")
//	-refresh-ttl dur   refresh token lifetime
//	-grace dur         rotated refresh token grace window
//	-delay-min dur     lower bound of the failed-login delay
//	-delay-max dur     upper bound of the failed-login delay
//	-log-format string json | zap
//	-log-level string  debug | info | warn | error
//
// Args are first filtered with flagx.FilterArgs so flags owned by other
// components (e.g. -c) do not cause parse errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run the HTTP API")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to run the gRPC health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Storage, "b", config.Storage, "refresh slot storage backend")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Issuer, "issuer", config.Issuer, "token issuer")
	fs.StringVar(&config.Audience, "audience", config.Audience, "token audience")
	fs.DurationVar(&config.AccessTokenValidityDuration, "access-ttl", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "refresh-ttl", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.DurationVar(&config.RefreshGraceDuration, "grace", config.RefreshGraceDuration, "refresh token grace window")
	fs.DurationVar(&config.FailureDelayMin, "delay-min", config.FailureDelayMin, "min delay after failed login")
	fs.DurationVar(&config.FailureDelayMax, "delay-max", config.FailureDelayMax, "max delay after failed login")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	return fs.Parse(args)
}
