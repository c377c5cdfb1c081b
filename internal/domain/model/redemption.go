package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Redemption is one successful claim of a code by an account.
// (AccountID, Code) is unique in the store.
type Redemption struct {
	ID        string
	AccountID int64
	Code      string
	ClaimedAt time.Time
}

func NewRedemption(accountID int64, code string, now time.Time) *Redemption {
	return &Redemption{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		AccountID: accountID,
		Code:      code,
		ClaimedAt: now,
	}
}

// CodeClaimant is one row of a code-usage report.
type CodeClaimant struct {
	AccountID   int64
	DisplayName string
	ClaimedAt   time.Time
}

// Outcome is the result of a single claim attempt.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeAlreadyClaimed
	OutcomeInvalidCode
	OutcomeInactive
	OutcomeLimitReached
	OutcomeExpired
	OutcomeTransientError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyClaimed:
		return "already_claimed"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeInactive:
		return "inactive"
	case OutcomeLimitReached:
		return "limit_reached"
	case OutcomeExpired:
		return "expired"
	case OutcomeTransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Final reports whether retrying the same claim would give the same answer.
func (o Outcome) Final() bool { return o != OutcomeTransientError && o != OutcomeUnknown }

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// RedemptionResult carries the outcome and, on success, the credited amount.
type RedemptionResult struct {
	Outcome Outcome
	Code    string
	Amount  int64
}

func (r RedemptionResult) Succeeded() bool { return r.Outcome == OutcomeSuccess }
