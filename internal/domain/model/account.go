package model

import (
	"strings"
	"time"

	"telegram-credit-ledger/internal/domain"
)

// Account is a credit holder keyed by its external identity (the chat user id).
// Balance may go negative through administrative debits; TotalGranted only grows.
type Account struct {
	ID           int64
	DisplayName  string
	Balance      int64
	TotalGranted int64
	ReferrerID   *int64
	Banned       bool
	JoinedAt     time.Time
	LastActiveAt time.Time
}

// NewAccount builds an unsaved account. A self-referral is dropped.
func NewAccount(id int64, displayName string, referrerID *int64, now time.Time) (*Account, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if referrerID != nil && (*referrerID == id || *referrerID <= 0) {
		referrerID = nil
	}
	return &Account{
		ID:           id,
		DisplayName:  strings.TrimSpace(displayName),
		ReferrerID:   referrerID,
		JoinedAt:     now,
		LastActiveAt: now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == 0 }

// CanAfford reports whether an automated charge of cost keeps the balance non-negative.
func (a *Account) CanAfford(cost int64) bool { return a != nil && a.Balance >= cost }

// AccountStats summarizes one account's activity.
type AccountStats struct {
	AccountID       int64
	Referrals       int
	CodesClaimed    int
	CreditsFromCode int64
}

// ReferrerRank is one row of the top-referrers report.
type ReferrerRank struct {
	AccountID   int64
	DisplayName string
	Referrals   int
}

// Totals is the system-wide summary report.
type Totals struct {
	Accounts            int
	AccountsWithCredits int
	CreditsOutstanding  int64
	CreditsDistributed  int64
	ActiveCodes         int
	Redemptions         int
}
