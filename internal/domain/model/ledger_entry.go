package model

import "time"

// EntryReason labels why a balance changed.
type EntryReason string

const (
	ReasonSignup     EntryReason = "signup"
	ReasonReferral   EntryReason = "referral"
	ReasonRedemption EntryReason = "redemption"
	ReasonAdjustment EntryReason = "adjustment"
	ReasonCharge     EntryReason = "charge"
	ReasonBulkGift   EntryReason = "bulk_gift"
)

// LedgerEntry is an append-only record of one balance delta.
// Replaying an account's entries reproduces its balance and total granted.
type LedgerEntry struct {
	ID        int64
	AccountID int64
	Delta     int64
	Reason    EntryReason
	Ref       string
	CreatedAt time.Time
}

// Replay folds entries into (balance, totalGranted).
func Replay(entries []*LedgerEntry) (balance, granted int64) {
	for _, e := range entries {
		balance += e.Delta
		if e.Delta > 0 {
			granted += e.Delta
		}
	}
	return balance, granted
}
