// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: postgres or sqlite (default: postgres)
  - JWTSecret: Supabase JWT signing secret (required)
  - IPHashSalt: Secret for hashing client IPs (required)
  - RedisURL: Redis for shared rate limiting (optional)
  - PaywallSecret: Checkout grace cookie signing secret (optional)
  - Billing: off or active_required (default: off)
  - SessionTimeout: Diagnostic session lifetime (default: 30m)
  - DiagnosticDebug: Log the per-domain selection distribution

# CLI Flags

	-p                 Server port
	-d                 Database URL
	-t                 Database type
	--redis            Redis URL
	--jwt-secret       Supabase JWT secret
	--ip-salt          IP hash salt
	--paywall-secret   Grace cookie secret
	--billing          Billing enforcement
	--session-timeout  Diagnostic session lifetime
	--debug-blueprint  Distribution logging

# Environment Variables

Flags fall back to environment variables:

	PORT                       → -p
	DATABASE_URL               → -d
	DATABASE_TYPE              → -t
	REDIS_URL                  → --redis
	SUPABASE_JWT_SECRET        → --jwt-secret
	IP_HASH_SALT               → --ip-salt
	PAYWALL_SIGNING_SECRET     → --paywall-secret
	BILLING_ENFORCEMENT        → --billing
	DIAGNOSTIC_SESSION_TIMEOUT → --session-timeout
	DIAGNOSTIC_BLUEPRINT_DEBUG → --debug-blueprint

CLI flags take precedence over environment variables. main loads a .env
file into the environment before parsing.

# Validation

ParseFlags returns an error if required values are missing or malformed:

  - DATABASE_URL, SUPABASE_JWT_SECRET and IP_HASH_SALT must be provided
  - DATABASE_TYPE must be postgres or sqlite
  - BILLING_ENFORCEMENT must be off or active_required

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
*/
package cliparse
