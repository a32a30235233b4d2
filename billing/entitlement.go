// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package billing

import "time"

// Subscription statuses as stored in user_subscriptions.status.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusNone     = "none"
)

// Subscription is the billing row consulted for entitlement.
type Subscription struct {
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
	TrialEndsAt       *time.Time
}

// Entitled reports whether sub grants premium access at now. Active and
// trialing subscriptions entitle, unless they are set to cancel and the
// period has already ended.
func Entitled(sub Subscription, now time.Time) bool {
	if sub.Status != StatusActive && sub.Status != StatusTrialing {
		return false
	}
	if sub.CancelAtPeriodEnd && sub.CurrentPeriodEnd != nil {
		return now.Before(*sub.CurrentPeriodEnd)
	}
	return true
}

// IsSubscriberStatus is the UI-facing check used by the status endpoint. A
// trial counts until trial_ends_at.
func IsSubscriberStatus(sub Subscription, now time.Time) bool {
	switch sub.Status {
	case StatusActive:
		return true
	case StatusTrialing:
		return sub.TrialEndsAt == nil || now.Before(*sub.TrialEndsAt)
	}
	return false
}
