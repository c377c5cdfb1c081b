package api

import (
	"net/http"

	"telegram-credit-ledger/internal/domain"
	"telegram-credit-ledger/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type createCodeRequest struct {
	Code    string `json:"code"`
	Amount  int64  `json:"amount"`
	MaxUses int    `json:"maxUses"`
	// Expiry is free text such as "24h" or "1h30m"; unparseable text means no expiry.
	Expiry string `json:"expiry"`
}

func (s *Server) createCode(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var expiry *int
	if mins, ok := s.ledger.ParseDuration(req.Expiry); ok {
		expiry = &mins
	}

	var (
		code *model.RedeemCode
		err  error
	)
	if req.Code == "" {
		code, err = s.ledger.GenerateCode(r.Context(), req.Amount, req.MaxUses, expiry)
	} else {
		code, err = s.ledger.CreateCode(r.Context(), req.Code, req.Amount, req.MaxUses, expiry)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCodeDTO(code, s.now()))
}

func (s *Server) listCodes(w http.ResponseWriter, r *http.Request) {
	filter, ok := model.ParseCodeFilter(r.URL.Query().Get("filter"))
	if !ok {
		s.writeError(w, r, &domain.ValidationError{Field: "filter", Reason: "must be one of all, active, inactive, expired"})
		return
	}
	codes, err := s.ledger.ListCodes(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()
	items := make([]codeDTO, 0, len(codes))
	for _, c := range codes {
		items = append(items, toCodeDTO(c, now))
	}
	writeJSON(w, http.StatusOK, listResponse[codeDTO]{Items: items})
}

func (s *Server) getCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.ledger.GetCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCodeDTO(code, s.now()))
}

func (s *Server) deactivateCode(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeactivateCode(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteCode(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCode(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) codeClaimants(w http.ResponseWriter, r *http.Request) {
	claimants, err := s.ledger.CodeClaimants(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]claimantDTO, 0, len(claimants))
	for _, c := range claimants {
		items = append(items, claimantDTO{AccountID: c.AccountID, DisplayName: c.DisplayName, ClaimedAt: c.ClaimedAt})
	}
	writeJSON(w, http.StatusOK, listResponse[claimantDTO]{Items: items})
}

func (s *Server) cleanupCodes(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.CleanupExpiredCodes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) parseDuration(w http.ResponseWriter, r *http.Request) {
	var out struct {
		Minutes *int `json:"minutes"`
	}
	if mins, ok := s.ledger.ParseDuration(r.URL.Query().Get("text")); ok {
		out.Minutes = &mins
	}
	writeJSON(w, http.StatusOK, out)
}
