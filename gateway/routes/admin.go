package routes

import (
	"net/http"

	"hesper/observability"
)

type supportMarketRequest struct {
	Address             string `json:"address"`
	CollateralFactorBps uint64 `json:"collateralFactorBps"`
	BorrowCap           string `json:"borrowCap,omitempty"`
	RewardEligible      bool   `json:"rewardEligible"`
}

func (s *server) handleSupportMarket(w http.ResponseWriter, r *http.Request) {
	var req supportMarketRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	market, err := parseAddress(req.Address, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.SupportMarket(market); err != nil {
		s.writeError(w, err)
		return
	}
	if req.CollateralFactorBps > 0 {
		if err := s.engines.Risk.SetCollateralFactor(market, fixedFromBps(req.CollateralFactorBps)); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.BorrowCap != "" {
		borrowCap, err := parseAmount(req.BorrowCap, "borrowCap")
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.engines.Risk.SetBorrowCap(market, borrowCap); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.RewardEligible {
		if err := s.engines.Risk.SetRewardEligibility(market, true); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.logger.Info("market listed", "market", market.Hex())
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

type bpsRequest struct {
	Bps uint64 `json:"bps"`
}

func (s *server) handleSetCollateralFactor(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req bpsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.SetCollateralFactor(market, fixedFromBps(req.Bps)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type borrowCapRequest struct {
	BorrowCap string `json:"borrowCap"`
}

func (s *server) handleSetBorrowCap(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req borrowCapRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	borrowCap, err := parseAmount(req.BorrowCap, "borrowCap")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.SetBorrowCap(market, borrowCap); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type eligibilityRequest struct {
	Eligible bool `json:"eligible"`
}

func (s *server) handleSetRewardEligibility(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req eligibilityRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.SetRewardEligibility(market, req.Eligible); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSetCloseFactor(w http.ResponseWriter, r *http.Request) {
	var req bpsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.SetCloseFactor(fixedFromBps(req.Bps)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSetLiquidationIncentive(w http.ResponseWriter, r *http.Request) {
	var req bpsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engines.Risk.SetLiquidationIncentive(fixedFromBps(req.Bps)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRefreshSpeeds(w http.ResponseWriter, r *http.Request) {
	if err := s.engines.Rewards.RefreshSpeeds(); err != nil {
		s.writeError(w, err)
		return
	}
	observability.Flywheel().RecordSpeedRefresh()
	s.logger.Info("emission speeds refreshed")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
