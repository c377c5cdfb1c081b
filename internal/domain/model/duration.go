package model

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hoursRe   = regexp.MustCompile(`(\d+)h`)
	minutesRe = regexp.MustCompile(`(\d+)m`)
	digitsRe  = regexp.MustCompile(`^\d+$`)
)

// ParseDuration turns "1h30m", "2h", "45m" or a bare "90" into minutes.
// Empty input, "none", and anything that does not yield a positive total
// report ok=false, meaning no expiry. Unparseable text is not an error.
// Totals are capped at MaxExpiryMinutes.
func ParseDuration(text string) (minutes int, ok bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" || s == "none" {
		return 0, false
	}

	total := 0
	hm := hoursRe.FindStringSubmatch(s)
	mm := minutesRe.FindStringSubmatch(s)
	if hm != nil {
		total += min(atoi(hm[1]), MaxExpiryMinutes/60+1) * 60
	}
	if mm != nil {
		total += min(atoi(mm[1]), MaxExpiryMinutes+1)
	}
	if hm == nil && mm == nil && digitsRe.MatchString(s) {
		total = atoi(s)
	}
	if total <= 0 {
		return 0, false
	}
	return min(total, MaxExpiryMinutes), true
}

// atoi saturates digit runs that overflow int.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxInt
		}
		return 0
	}
	return n
}
