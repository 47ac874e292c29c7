package routes

import (
	"errors"
	"net/http"

	nativecommon "hesper/native/common"
	"hesper/native/risk"
	"hesper/observability"
)

// The policy endpoints are the integration surface for token ledgers: each
// one runs the corresponding gating hook and reports allowed or the
// rejection reason. Hooks mutate reward state as a side effect, so a
// ledger must call them exactly once per action.

type policyRequest struct {
	Market      string `json:"market"`
	Account     string `json:"account"`
	Amount      string `json:"amount,omitempty"`
	Payer       string `json:"payer,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
}

type policyResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (s *server) writePolicyResult(w http.ResponseWriter, action string, err error) {
	observability.Risk().RecordCheck(action, err)
	if errors.Is(err, risk.ErrInsufficientLiquidity) {
		observability.Risk().RecordShortfall()
	}
	if err == nil {
		s.writeJSON(w, http.StatusOK, policyResponse{Allowed: true})
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, policyResponse{Allowed: false, Reason: err.Error()})
}

func (s *server) handleMintAllowed(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	account, err := parseAddress(req.Account, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePolicyResult(w, nativecommon.ActionMint, s.engines.Risk.MintAllowed(market, account))
}

func (s *server) handleRedeemAllowed(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
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
	s.writePolicyResult(w, nativecommon.ActionRedeem, s.engines.Risk.RedeemAllowed(market, account, amount))
}

func (s *server) handleBorrowAllowed(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
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
	s.writePolicyResult(w, nativecommon.ActionBorrow, s.engines.Risk.BorrowAllowed(market, account, amount))
}

func (s *server) handleRepayAllowed(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	borrower, err := parseAddress(req.Account, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	payer := borrower
	if req.Payer != "" {
		if payer, err = parseAddress(req.Payer, "payer"); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writePolicyResult(w, nativecommon.ActionRepay, s.engines.Risk.RepayBorrowAllowed(market, payer, borrower))
}

func (s *server) handleTransferAllowed(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	src, err := parseAddress(req.Source, "source")
	if err != nil {
		s.writeError(w, err)
		return
	}
	dst, err := parseAddress(req.Destination, "destination")
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePolicyResult(w, nativecommon.ActionTransfer, s.engines.Risk.TransferAllowed(market, src, dst, amount))
}

type liquidatePolicyRequest struct {
	BorrowedMarket   string `json:"borrowedMarket"`
	CollateralMarket string `json:"collateralMarket"`
	Liquidator       string `json:"liquidator"`
	Borrower         string `json:"borrower"`
	RepayAmount      string `json:"repayAmount,omitempty"`
}

func (s *server) handleLiquidateAllowed(w http.ResponseWriter, r *http.Request) {
	var req liquidatePolicyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	borrowed, err := parseAddress(req.BorrowedMarket, "borrowedMarket")
	if err != nil {
		s.writeError(w, err)
		return
	}
	collateral, err := parseAddress(req.CollateralMarket, "collateralMarket")
	if err != nil {
		s.writeError(w, err)
		return
	}
	liquidator, err := parseAddress(req.Liquidator, "liquidator")
	if err != nil {
		s.writeError(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower, "borrower")
	if err != nil {
		s.writeError(w, err)
		return
	}
	repay, err := parseAmount(req.RepayAmount, "repayAmount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePolicyResult(w, "liquidate", s.engines.Risk.LiquidateBorrowAllowed(borrowed, collateral, liquidator, borrower, repay))
}

func (s *server) handleSeizeAllowed(w http.ResponseWriter, r *http.Request) {
	var req liquidatePolicyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	borrowed, err := parseAddress(req.BorrowedMarket, "borrowedMarket")
	if err != nil {
		s.writeError(w, err)
		return
	}
	collateral, err := parseAddress(req.CollateralMarket, "collateralMarket")
	if err != nil {
		s.writeError(w, err)
		return
	}
	liquidator, err := parseAddress(req.Liquidator, "liquidator")
	if err != nil {
		s.writeError(w, err)
		return
	}
	borrower, err := parseAddress(req.Borrower, "borrower")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePolicyResult(w, nativecommon.ActionSeize, s.engines.Risk.SeizeAllowed(collateral, borrowed, liquidator, borrower))
}
