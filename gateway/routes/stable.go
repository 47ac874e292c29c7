package routes

import (
	"net/http"
)

func (s *server) handleMintable(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	mintable, err := s.engines.Stable.MintableAmount(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"mintable": amountString(mintable)})
}

func (s *server) handleStableDebt(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	debt, err := s.engines.Stable.DebtOf(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"debt": amountString(debt)})
}

type stableMintRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (s *server) handleStableMint(w http.ResponseWriter, r *http.Request) {
	var req stableMintRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	account, err := parseAddress(req.Account, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Stable.Mint(account, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleStableRepay(w http.ResponseWriter, r *http.Request) {
	var req stableMintRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	account, err := parseAddress(req.Account, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	repaid, err := s.engines.Stable.Repay(account, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"repaid": amountString(repaid)})
}
