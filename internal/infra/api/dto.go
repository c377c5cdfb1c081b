package api

import (
	"time"

	"telegram-credit-ledger/internal/domain/model"
)

type accountDTO struct {
	ID           int64     `json:"id"`
	DisplayName  string    `json:"displayName"`
	Balance      int64     `json:"balance"`
	TotalGranted int64     `json:"totalGranted"`
	ReferrerID   *int64    `json:"referrerId,omitempty"`
	Banned       bool      `json:"banned"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

func toAccountDTO(a *model.Account) accountDTO {
	return accountDTO{
		ID:           a.ID,
		DisplayName:  a.DisplayName,
		Balance:      a.Balance,
		TotalGranted: a.TotalGranted,
		ReferrerID:   a.ReferrerID,
		Banned:       a.Banned,
		JoinedAt:     a.JoinedAt,
		LastActiveAt: a.LastActiveAt,
	}
}

func toAccountDTOs(in []*model.Account) []accountDTO {
	out := make([]accountDTO, 0, len(in))
	for _, a := range in {
		out = append(out, toAccountDTO(a))
	}
	return out
}

type codeDTO struct {
	Code          string     `json:"code"`
	Amount        int64      `json:"amount"`
	MaxUses       int        `json:"maxUses"`
	CurrentUses   int        `json:"currentUses"`
	RemainingUses int        `json:"remainingUses"`
	ExpiryMinutes int        `json:"expiryMinutes,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Expired       bool       `json:"expired"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toCodeDTO(c *model.RedeemCode, now time.Time) codeDTO {
	d := codeDTO{
		Code:          c.Code,
		Amount:        c.Amount,
		MaxUses:       c.MaxUses,
		CurrentUses:   c.CurrentUses,
		RemainingUses: c.RemainingUses(),
		ExpiryMinutes: c.ExpiryMinutes,
		Expired:       c.IsExpired(now),
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
	}
	if at, ok := c.ExpiresAt(); ok {
		d.ExpiresAt = &at
	}
	return d
}

type redemptionDTO struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ClaimedAt time.Time `json:"claimedAt"`
}

type claimantDTO struct {
	AccountID   int64     `json:"accountId"`
	DisplayName string    `json:"displayName"`
	ClaimedAt   time.Time `json:"claimedAt"`
}

type ledgerEntryDTO struct {
	ID        int64     `json:"id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Ref       string    `json:"ref,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type accountStatsDTO struct {
	AccountID       int64 `json:"accountId"`
	Referrals       int   `json:"referrals"`
	CodesClaimed    int   `json:"codesClaimed"`
	CreditsFromCode int64 `json:"creditsFromCodes"`
}

type totalsDTO struct {
	Accounts            int   `json:"accounts"`
	AccountsWithCredits int   `json:"accountsWithCredits"`
	CreditsOutstanding  int64 `json:"creditsOutstanding"`
	CreditsDistributed  int64 `json:"creditsDistributed"`
	ActiveCodes         int   `json:"activeCodes"`
	Redemptions         int   `json:"redemptions"`
}

type referrerDTO struct {
	AccountID   int64  `json:"accountId"`
	DisplayName string `json:"displayName"`
	Referrals   int    `json:"referrals"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
