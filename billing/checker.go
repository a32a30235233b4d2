// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Enforcement modes for premium routes.
const (
	EnforcementOff            = "off"
	EnforcementActiveRequired = "active_required"
)

// CodePaywall is returned to clients blocked by the subscriber gate.
const CodePaywall = "PAYWALL"

// Entitlement cache tuning.
const (
	CacheSize   = 1000
	PositiveTTL = 60 * time.Second
	NegativeTTL = 30 * time.Second
)

type cacheEntry struct {
	entitled  bool
	expiresAt time.Time
}

// Checker answers entitlement questions from user_subscriptions, caching
// per-user results. Safe for concurrent use.
type Checker struct {
	db          *sql.DB
	enforcement string
	cache       *lru.Cache[string, cacheEntry]
	now         func() time.Time
}

func NewChecker(db *sql.DB, enforcement string) (*Checker, error) {
	cache, err := lru.New[string, cacheEntry](CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create entitlement cache: %w", err)
	}
	if enforcement == "" {
		enforcement = EnforcementOff
	}
	return &Checker{db: db, enforcement: enforcement, cache: cache, now: time.Now}, nil
}

// latestSubscription loads the subscription with the latest period end.
func (c *Checker) latestSubscription(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	var periodEnd, trialEnd sql.NullTime

	err := c.db.QueryRowContext(ctx, `
		SELECT status, cancel_at_period_end, current_period_end, trial_ends_at
		FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY current_period_end DESC
		LIMIT 1
	`, userID).Scan(&sub.Status, &sub.CancelAtPeriodEnd, &periodEnd, &trialEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	if trialEnd.Valid {
		sub.TrialEndsAt = &trialEnd.Time
	}
	return &sub, nil
}

// IsSubscriber reports whether userID holds an entitling subscription.
// Lookup failures count as not subscribed.
func (c *Checker) IsSubscriber(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	now := c.now()
	if entry, ok := c.cache.Get(userID); ok {
		if now.Before(entry.expiresAt) {
			return entry.entitled
		}
		c.cache.Remove(userID)
	}

	entitled := false
	sub, err := c.latestSubscription(ctx, userID)
	if err != nil {
		slog.Error("failed to load subscription", "user_id", userID, "error", err)
	} else if sub != nil {
		entitled = Entitled(*sub, now)
	}

	ttl := NegativeTTL
	if entitled {
		ttl = PositiveTTL
	}
	c.cache.Add(userID, cacheEntry{entitled: entitled, expiresAt: now.Add(ttl)})

	return entitled
}

// Invalidate drops any cached result for userID.
func (c *Checker) Invalidate(userID string) {
	c.cache.Remove(userID)
}

// AccessLevel resolves the caller's tier.
func (c *Checker) AccessLevel(ctx context.Context, userID string) AccessLevel {
	if userID == "" {
		return Anonymous
	}
	return LevelFor(userID, c.IsSubscriber(ctx, userID))
}

// AccessResult is the outcome of a subscriber gate.
type AccessResult struct {
	Allowed bool
	Code    string
	Details *BlockDetails
}

// BlockDetails records why a caller was stopped at the paywall.
type BlockDetails struct {
	Route             string     `json:"route,omitempty"`
	ComputedStatus    string     `json:"computed_status,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end"`
}

// RequireSubscriber gates a premium route. With enforcement off every
// caller passes. Under active_required the caller needs an entitling
// subscription or a valid checkout grace cookie.
func (c *Checker) RequireSubscriber(ctx context.Context, userID, route string, hasGrace bool) AccessResult {
	if c.enforcement != EnforcementActiveRequired {
		return AccessResult{Allowed: true}
	}
	if hasGrace || c.IsSubscriber(ctx, userID) {
		return AccessResult{Allowed: true}
	}

	details := &BlockDetails{Route: route}
	if userID != "" {
		if sub, err := c.latestSubscription(ctx, userID); err == nil && sub != nil {
			details.ComputedStatus = sub.Status
			details.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
			details.CurrentPeriodEnd = sub.CurrentPeriodEnd
		}
	}

	slog.Warn("paywall block",
		"user_id", userID,
		"route", route,
		"computed_status", details.ComputedStatus,
		"cancel_at_period_end", details.CancelAtPeriodEnd,
	)

	return AccessResult{Allowed: false, Code: CodePaywall, Details: details}
}

// StatusResult is the UI-facing subscription summary.
type StatusResult struct {
	IsSubscriber bool   `json:"isSubscriber"`
	Status       string `json:"status"`
}

// Status prefers an active or trialing row, then the newest row of any
// status, then "none". Errors degrade to "none".
func (c *Checker) Status(ctx context.Context, userID string) StatusResult {
	none := StatusResult{Status: StatusNone}
	if userID == "" {
		return none
	}

	var sub Subscription
	var trialEnd sql.NullTime
	err := c.db.QueryRowContext(ctx, `
		SELECT status, trial_ends_at
		FROM user_subscriptions
		WHERE user_id = $1 AND status IN ($2, $3)
		LIMIT 1
	`, userID, StatusActive, StatusTrialing).Scan(&sub.Status, &trialEnd)
	if err == nil {
		if trialEnd.Valid {
			sub.TrialEndsAt = &trialEnd.Time
		}
		return StatusResult{IsSubscriber: IsSubscriberStatus(sub, c.now()), Status: sub.Status}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to load active subscription", "user_id", userID, "error", err)
		return none
	}

	err = c.db.QueryRowContext(ctx, `
		SELECT status
		FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(&sub.Status)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to load subscription status", "user_id", userID, "error", err)
		}
		return none
	}

	return StatusResult{IsSubscriber: false, Status: sub.Status}
}
