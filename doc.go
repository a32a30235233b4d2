// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Testero API server.

Testero prepares candidates for the Google Professional Machine Learning
Engineer (PMLE) exam. It serves blueprint-weighted diagnostics, targeted
practice sessions, and a readiness score that blends both.

# Starting the Server

The server reads environment variables (optionally from .env) or CLI flags:

	DATABASE_URL=postgres://... SUPABASE_JWT_SECRET=... go run .

Or with flags:

	go run . -p 3318 -d "postgres://..."

For local work SQLite is supported:

	DATABASE_TYPE=sqlite DATABASE_URL=testero.db go run .

# Configuration

Required settings:

  - DATABASE_URL (-d): Database connection string
  - SUPABASE_JWT_SECRET: Secret for access token verification
  - IP_HASH_SALT: Salt for client IP hashing

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE: postgres (default) or sqlite
  - REDIS_URL: Shared rate limiting; in-process limiting otherwise
  - BILLING_ENFORCEMENT: off (default) or active_required
  - PAYWALL_SIGNING_SECRET: Verifies the checkout grace cookie
  - DIAGNOSTIC_SESSION_TIMEOUT: Diagnostic lifetime (default: 30m)
  - DIAGNOSTIC_BLUEPRINT_DEBUG: Log per-domain selection targets

# Architecture

  - handlers: HTTP request handlers (diagnostic, practice, dashboard, ...)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, metrics, rate limiting, JSON helpers
  - blueprint: PMLE domains and weights
  - selection: Question selection and snapshotting
  - readiness: Scores, tiers, and study plans
  - billing: Entitlements, access levels, free quota
  - ratelimit: Redis and in-process limiters
  - auth: Access tokens, anonymous identity, grace cookie
  - models: Request/response types
  - db: Connection and schema
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
