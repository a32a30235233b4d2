// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth resolves caller identity and provides ID and hashing helpers.

# Access Tokens

Signed-in users send a Supabase access token:

	Authorization: Bearer <jwt>

VerifyAccessToken checks the HS256 signature against SUPABASE_JWT_SECRET,
requires an exp claim and returns the sub claim as the user id. UserID is
the request-level shortcut; it returns "" for guests and bad tokens so
handlers can decide whether identity is optional.

# Anonymous Sessions

Guests taking a diagnostic are tracked by a UUID. AnonymousSessionID looks
in the request body value, the anonymousSessionId query parameter, the
X-Anonymous-Session-ID header and the testero_anonymous_session_id cookie,
in that order. SetAnonymousCookie stores a new id for 30 days.

# Checkout Grace Cookie

After checkout the payment flow sets checkout_grace, valid for 15 minutes:

	base64url(payload) "." base64url(HMAC-SHA256(payload))

VerifyGraceCookie lets premium routes admit a new subscriber before the
billing webhook has written the subscription row.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters

# IP Hashing

Rate limit keys never contain raw addresses:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
