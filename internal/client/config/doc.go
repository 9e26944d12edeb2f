// Package config loads runtime configuration for the tokenkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config, then
//     TOKENKEEPER_CLI_* environment variables (see parseFile).
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the account HTTP API
//	-t duration   per-request timeout
//
// # File schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "10s"
//	}
package config
