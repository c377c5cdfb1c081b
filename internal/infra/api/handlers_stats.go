package api

import (
	"net/http"
	"time"

	"telegram-credit-ledger/internal/domain"
)

func (s *Server) totals(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.Totals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsDTO{
		Accounts:            t.Accounts,
		AccountsWithCredits: t.AccountsWithCredits,
		CreditsOutstanding:  t.CreditsOutstanding,
		CreditsDistributed:  t.CreditsDistributed,
		ActiveCodes:         t.ActiveCodes,
		Redemptions:         t.Redemptions,
	})
}

func (s *Server) topReferrers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ranks, err := s.ledger.TopReferrers(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]referrerDTO, 0, len(ranks))
	for _, rk := range ranks {
		items = append(items, referrerDTO{AccountID: rk.AccountID, DisplayName: rk.DisplayName, Referrals: rk.Referrals})
	}
	writeJSON(w, http.StatusOK, listResponse[referrerDTO]{Items: items})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	accs, err := s.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[accountDTO]{Items: toAccountDTOs(accs)})
}

func (s *Server) recentAccounts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	accs, err := s.ledger.RecentAccounts(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[accountDTO]{Items: toAccountDTOs(accs)})
}

func (s *Server) inactiveAccounts(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	olderThan := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	total, sample, err := s.ledger.InactiveAccounts(r.Context(), olderThan, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Total int          `json:"total"`
		Items []accountDTO `json:"items"`
	}{total, toAccountDTOs(sample)})
}

func (s *Server) joinedBetween(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	accs, err := s.ledger.JoinedBetween(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[accountDTO]{Items: toAccountDTOs(accs)})
}

// queryTime accepts RFC 3339 or a bare date (midnight UTC).
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, &domain.ValidationError{Field: name, Reason: "expected RFC 3339 time or YYYY-MM-DD"}
}
