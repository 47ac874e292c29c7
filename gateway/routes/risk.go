package routes

import (
	"net/http"

	"hesper/native/fixedmath"
)

type marketResponse struct {
	Address          string `json:"address"`
	Listed           bool   `json:"listed"`
	CollateralFactor string `json:"collateralFactor"`
	RewardEligible   bool   `json:"rewardEligible"`
	BorrowCap        string `json:"borrowCap"`
	Speed            string `json:"speed,omitempty"`
}

func (s *server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.engines.Risk.AllMarkets()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]marketResponse, 0, len(markets))
	for _, market := range markets {
		meta, err := s.engines.Risk.MarketMeta(market)
		if err != nil {
			s.writeError(w, err)
			return
		}
		entry := marketResponse{
			Address:          market.Hex(),
			Listed:           meta.Listed,
			CollateralFactor: amountString(meta.CollateralFactor.Mantissa),
			RewardEligible:   meta.RewardEligible,
			BorrowCap:        amountString(meta.BorrowCap),
		}
		if s.engines.Rewards != nil {
			if speed, err := s.engines.Rewards.Speed(market); err == nil {
				entry.Speed = amountString(speed)
			}
		}
		out = append(out, entry)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleMarketDetail(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	meta, err := s.engines.Risk.MarketMeta(market)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entry := marketResponse{
		Address:          market.Hex(),
		Listed:           meta.Listed,
		CollateralFactor: amountString(meta.CollateralFactor.Mantissa),
		RewardEligible:   meta.RewardEligible,
		BorrowCap:        amountString(meta.BorrowCap),
	}
	if s.engines.Rewards != nil {
		if speed, err := s.engines.Rewards.Speed(market); err == nil {
			entry.Speed = amountString(speed)
		}
	}
	s.writeJSON(w, http.StatusOK, entry)
}

type liquidityResponse struct {
	Liquidity string `json:"liquidity"`
	Shortfall string `json:"shortfall"`
}

func (s *server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	liquidity, shortfall, err := s.engines.Risk.AccountLiquidity(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, liquidityResponse{
		Liquidity: amountString(liquidity),
		Shortfall: amountString(shortfall),
	})
}

type hypotheticalRequest struct {
	Market       string `json:"market"`
	RedeemTokens string `json:"redeemTokens"`
	BorrowAmount string `json:"borrowAmount"`
}

func (s *server) handleHypothetical(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req hypotheticalRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	redeemTokens, err := parseAmount(req.RedeemTokens, "redeemTokens")
	if err != nil {
		s.writeError(w, err)
		return
	}
	borrowAmount, err := parseAmount(req.BorrowAmount, "borrowAmount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	liquidity, shortfall, err := s.engines.Risk.HypotheticalLiquidity(account, market, redeemTokens, borrowAmount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, liquidityResponse{
		Liquidity: amountString(liquidity),
		Shortfall: amountString(shortfall),
	})
}

func (s *server) handleMemberships(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	memberships, err := s.engines.Risk.Memberships(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]string, 0, len(memberships))
	for _, market := range memberships {
		out = append(out, market.Hex())
	}
	s.writeJSON(w, http.StatusOK, out)
}

type enterMarketsRequest struct {
	Markets []string `json:"markets"`
}

func (s *server) handleEnterMarkets(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req enterMarketsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Markets) == 0 {
		s.writeError(w, badRequestf("markets required"))
		return
	}
	parsed, err := parseAddressList(req.Markets)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.EnterMarkets(account, parsed); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type exitMarketRequest struct {
	Market string `json:"market"`
}

func (s *server) handleExitMarket(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "account")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req exitMarketRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Market, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.ExitMarket(account, market); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type seizePreviewRequest struct {
	BorrowedMarket   string `json:"borrowedMarket"`
	CollateralMarket string `json:"collateralMarket"`
	RepayAmount      string `json:"repayAmount"`
}

func (s *server) handleSeizePreview(w http.ResponseWriter, r *http.Request) {
	var req seizePreviewRequest
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
	repay, err := parseAmount(req.RepayAmount, "repayAmount")
	if err != nil {
		s.writeError(w, err)
		return
	}
	seizeTokens, err := s.engines.Risk.SeizeTokens(borrowed, collateral, repay)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"seizeTokens": amountString(seizeTokens)})
}

// fixedFromBps converts a basis-point request field to Exp scale.
func fixedFromBps(bps uint64) fixedmath.Exp {
	return fixedmath.ExpFromBps(bps)
}
