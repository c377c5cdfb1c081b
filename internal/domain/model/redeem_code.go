package model

import (
	"strings"
	"time"
)

// CodeFilter selects a subset of redeem codes for listing.
type CodeFilter string

const (
	CodeFilterAll      CodeFilter = "all"
	CodeFilterActive   CodeFilter = "active"
	CodeFilterInactive CodeFilter = "inactive"
	CodeFilterExpired  CodeFilter = "expired"
)

func ParseCodeFilter(s string) (CodeFilter, bool) {
	switch f := CodeFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CodeFilterAll, true
	case CodeFilterAll, CodeFilterActive, CodeFilterInactive, CodeFilterExpired:
		return f, true
	default:
		return "", false
	}
}

// RedeemCode grants Amount credits per claim, up to MaxUses distinct accounts.
// ExpiryMinutes of zero means the code never expires.
type RedeemCode struct {
	Code          string
	Amount        int64
	MaxUses       int
	CurrentUses   int
	ExpiryMinutes int
	CreatedAt     time.Time
	Active        bool
}

// NormalizeCode is the canonical form used as the primary key.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ExpiresAt returns the instant after which the code is unusable, or false when it never expires.
func (c *RedeemCode) ExpiresAt() (time.Time, bool) {
	if c.ExpiryMinutes <= 0 {
		return time.Time{}, false
	}
	// Second arithmetic: a time.Duration overflows past ~292 years.
	secs := c.CreatedAt.Unix() + int64(c.ExpiryMinutes)*60
	return time.Unix(secs, int64(c.CreatedAt.Nanosecond())).In(c.CreatedAt.Location()), true
}

// IsExpired is true strictly after createdAt + expiry.
func (c *RedeemCode) IsExpired(now time.Time) bool {
	at, ok := c.ExpiresAt()
	return ok && now.After(at)
}

func (c *RedeemCode) Exhausted() bool { return c.CurrentUses >= c.MaxUses }

func (c *RedeemCode) RemainingUses() int {
	if c.Exhausted() {
		return 0
	}
	return c.MaxUses - c.CurrentUses
}

// Usable reports whether a fresh account could still claim the code at now.
func (c *RedeemCode) Usable(now time.Time) bool {
	return c.Active && !c.Exhausted() && !c.IsExpired(now)
}

// Matches applies a list filter at now.
func (c *RedeemCode) Matches(f CodeFilter, now time.Time) bool {
	switch f {
	case CodeFilterActive:
		return c.Active
	case CodeFilterInactive:
		return !c.Active
	case CodeFilterExpired:
		return c.Active && c.IsExpired(now)
	default:
		return true
	}
}
