package routes

import (
	"net/http"

	"hesper/native/flywheel"
	"hesper/observability"
)

func (s *server) handleAccrued(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	accrued, err := s.engines.Rewards.Accrued(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"accrued": amountString(accrued)})
}

type claimRequest struct {
	Holders   []string `json:"holders"`
	Markets   []string `json:"markets"`
	Borrowers bool     `json:"borrowers"`
	Suppliers bool     `json:"suppliers"`
}

func (s *server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	holders, err := parseAddressList(req.Holders)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(holders) == 0 {
		s.writeError(w, badRequestf("holders required"))
		return
	}
	markets, err := parseAddressList(req.Markets)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(markets) == 0 {
		// Claim across every listed market.
		all, err := s.engines.Risk.AllMarkets()
		if err != nil {
			s.writeError(w, err)
			return
		}
		markets = all
	}
	err = s.engines.Rewards.Claim(flywheel.ClaimRequest{
		Holders:   holders,
		Markets:   markets,
		Borrowers: req.Borrowers,
		Suppliers: req.Suppliers,
	})
	observability.Flywheel().RecordClaim(err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
