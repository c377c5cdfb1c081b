package model

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"telegram-credit-ledger/internal/domain"
)

// CodeSpec is the admin input for creating a redeem code.
type CodeSpec struct {
	Code          string `validate:"required,max=64,printascii"`
	Amount        int64  `validate:"gt=0"`
	MaxUses       int    `validate:"gt=0"`
	ExpiryMinutes int    `validate:"gte=0,lte=525600000"`
}

// MaxExpiryMinutes (1000 years) keeps expiry arithmetic and the int32 column in range.
const MaxExpiryMinutes = 525600000

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func codeValidator() *validator.Validate {
	validateOnce.Do(func() { validate = validator.New() })
	return validate
}

// Validate normalizes the code identifier and rejects malformed fields.
// The returned error is a *domain.ValidationError naming the first bad field.
func (s *CodeSpec) Validate() error {
	s.Code = NormalizeCode(s.Code)
	if strings.ContainsAny(s.Code, " \t\n") {
		return &domain.ValidationError{Field: "code", Reason: "contains whitespace"}
	}
	err := codeValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ValidationError{Field: fieldName(fe.Field()), Reason: fe.Tag()}
	}
	return &domain.ValidationError{Field: "code", Reason: err.Error()}
}

// Build returns a fresh, active code with zero uses.
func (s CodeSpec) Build(now time.Time) *RedeemCode {
	return &RedeemCode{
		Code:          s.Code,
		Amount:        s.Amount,
		MaxUses:       s.MaxUses,
		ExpiryMinutes: s.ExpiryMinutes,
		CreatedAt:     now,
		Active:        true,
	}
}

func fieldName(goName string) string {
	switch goName {
	case "MaxUses":
		return "maxUses"
	case "ExpiryMinutes":
		return "expiryMinutes"
	default:
		return strings.ToLower(goName)
	}
}
