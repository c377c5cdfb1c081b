package api

import (
	"net/http"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"
)

type createAccountRequest struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	ReferrerID  *int64 `json:"referrerId"`
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acc, created, err := s.ledger.CreateAccount(r.Context(), req.ID, req.DisplayName, req.ReferrerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, struct {
		Account accountDTO `json:"account"`
		Created bool       `json:"created"`
	}{toAccountDTO(acc), created})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	acc, found, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		s.writeError(w, r, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Delta int64 `json:"delta"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acc, err := s.ledger.AdjustBalance(r.Context(), id, req.Delta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

func (s *Server) chargeUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Cost int64 `json:"cost"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acc, err := s.ledger.ChargeUsage(r.Context(), id, req.Cost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acc))
}

func (s *Server) setBanned(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req struct {
		Banned *bool `json:"banned"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Banned == nil {
		s.writeError(w, r, &domain.ValidationError{Field: "banned", Reason: "required"})
		return
	}
	if err := s.ledger.SetBanned(r.Context(), id, *req.Banned); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) touchAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.TouchActivity(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) accountStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.ledger.AccountStats(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountStatsDTO{
		AccountID:       st.AccountID,
		Referrals:       st.Referrals,
		CodesClaimed:    st.CodesClaimed,
		CreditsFromCode: st.CreditsFromCode,
	})
}

func (s *Server) accountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.ledger.AccountLedger(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]ledgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, ledgerEntryDTO{ID: e.ID, Delta: e.Delta, Reason: string(e.Reason), Ref: e.Ref, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, listResponse[ledgerEntryDTO]{Items: items})
}

func (s *Server) accountRedemptions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recs, err := s.ledger.RedemptionHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]redemptionDTO, 0, len(recs))
	for _, rec := range recs {
		items = append(items, redemptionDTO{ID: rec.ID, Code: rec.Code, ClaimedAt: rec.ClaimedAt})
	}
	writeJSON(w, http.StatusOK, listResponse[redemptionDTO]{Items: items})
}

type bulkAdjustRequest struct {
	IDs   []int64 `json:"ids"`
	Delta int64   `json:"delta"`
}

func (s *Server) bulkAdjust(w http.ResponseWriter, r *http.Request) {
	var req bulkAdjustRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.ledger.BulkAdjust(r.Context(), req.IDs, req.Delta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

type redeemRequest struct {
	AccountID int64  `json:"accountId"`
	Code      string `json:"code"`
}

type redeemResponse struct {
	Outcome model.Outcome `json:"outcome"`
	Code    string        `json:"code,omitempty"`
	Amount  int64         `json:"amount"`
}

// redeem answers 200 for every decided outcome, including rejections.
func (s *Server) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Redeem(r.Context(), req.AccountID, req.Code)
	if err != nil {
		if res.Outcome == model.OutcomeTransientError {
			s.log.Warn().Err(err).Int64("account_id", req.AccountID).Msg("redeem transient failure")
			writeJSON(w, http.StatusServiceUnavailable, redeemResponse{Outcome: res.Outcome, Code: res.Code})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemResponse{Outcome: res.Outcome, Code: res.Code, Amount: res.Amount})
}
