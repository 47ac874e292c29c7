// Package routes exposes the risk, reward, and stable engines over a JSON
// HTTP API.
package routes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"hesper/gateway/middleware"
	nativecommon "hesper/native/common"
	"hesper/native/flywheel"
	"hesper/native/risk"
	"hesper/native/stable"
)

// Engines bundles the module engines the API fronts.
type Engines struct {
	Risk    *risk.Engine
	Rewards *flywheel.Engine
	Stable  *stable.Engine
}

// Config wires the router's collaborators.
type Config struct {
	Engines       Engines
	Logger        *slog.Logger
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	Authenticator *middleware.Authenticator
	CORS          middleware.CORSConfig
}

type server struct {
	engines Engines
	logger  *slog.Logger
}

// New builds the HTTP handler for the full API surface.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{engines: cfg.Engines, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.RateLimiter != nil {
			v1.Use(cfg.RateLimiter.Middleware("v1"))
		}
		if cfg.Observability != nil {
			v1.Use(cfg.Observability.Middleware("v1"))
		}

		v1.Get("/markets", s.handleListMarkets)
		v1.Get("/markets/{market}", s.handleMarketDetail)

		v1.Get("/accounts/{account}/liquidity", s.handleLiquidity)
		v1.Post("/accounts/{account}/hypothetical", s.handleHypothetical)
		v1.Get("/accounts/{account}/memberships", s.handleMemberships)
		v1.Post("/accounts/{account}/enter", s.handleEnterMarkets)
		v1.Post("/accounts/{account}/exit", s.handleExitMarket)
		v1.Get("/accounts/{account}/rewards", s.handleAccrued)

		v1.Post("/policy/mint", s.handleMintAllowed)
		v1.Post("/policy/redeem", s.handleRedeemAllowed)
		v1.Post("/policy/borrow", s.handleBorrowAllowed)
		v1.Post("/policy/repay", s.handleRepayAllowed)
		v1.Post("/policy/transfer", s.handleTransferAllowed)
		v1.Post("/policy/liquidate", s.handleLiquidateAllowed)
		v1.Post("/policy/seize", s.handleSeizeAllowed)

		v1.Post("/liquidation/preview", s.handleSeizePreview)

		v1.Post("/rewards/claim", s.handleClaim)

		v1.Get("/stable/{account}/mintable", s.handleMintable)
		v1.Get("/stable/{account}/debt", s.handleStableDebt)
		v1.Post("/stable/mint", s.handleStableMint)
		v1.Post("/stable/repay", s.handleStableRepay)

		v1.Route("/admin", func(admin chi.Router) {
			if cfg.Authenticator != nil {
				admin.Use(cfg.Authenticator.Middleware("admin"))
			}
			admin.Post("/markets", s.handleSupportMarket)
			admin.Post("/markets/{market}/collateral-factor", s.handleSetCollateralFactor)
			admin.Post("/markets/{market}/borrow-cap", s.handleSetBorrowCap)
			admin.Post("/markets/{market}/reward-eligibility", s.handleSetRewardEligibility)
			admin.Post("/close-factor", s.handleSetCloseFactor)
			admin.Post("/liquidation-incentive", s.handleSetLiquidationIncentive)
			admin.Post("/speeds/refresh", s.handleRefreshSpeeds)
		})
	})

	return r
}

// --- request plumbing ---

func (s *server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps module sentinel errors onto HTTP statuses. Unknown errors
// are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, risk.ErrMarketNotListed):
		return http.StatusNotFound
	case errors.Is(err, risk.ErrPriceUnavailable),
		errors.Is(err, risk.ErrSnapshotUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, risk.ErrInsufficientLiquidity),
		errors.Is(err, risk.ErrInsufficientShortfall),
		errors.Is(err, risk.ErrTooMuchRepay),
		errors.Is(err, risk.ErrBorrowCapExceeded),
		errors.Is(err, risk.ErrNonzeroBorrowBalance),
		errors.Is(err, risk.ErrTooManyAssets),
		errors.Is(err, risk.ErrMarketAlreadyListed),
		errors.Is(err, stable.ErrMintCapacityExceeded),
		errors.Is(err, nativecommon.ErrActionPaused):
		return http.StatusConflict
	case errors.Is(err, flywheel.ErrClaimTooLarge),
		errors.Is(err, risk.ErrInvalidCollateralFactor),
		errors.Is(err, risk.ErrInvalidCloseFactor),
		errors.Is(err, risk.ErrInvalidLiquidationIncentive):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func badRequestf(msg string) error {
	return &badRequestError{msg: msg}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func (e *badRequestError) Is(target error) bool { return target == errBadRequest }

func (s *server) decode(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return badRequestf("invalid request body: " + err.Error())
	}
	return nil
}

func pathAddress(r *http.Request, param string) (common.Address, error) {
	raw := chi.URLParam(r, param)
	return parseAddress(raw, param)
}

func parseAddress(raw, field string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, badRequestf("invalid address for " + field)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAddressList(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		addr, err := parseAddress(entry, "markets")
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAmount(raw, field string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uint256.NewInt(0), nil
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, badRequestf("invalid amount for " + field)
	}
	return value, nil
}

func amountString(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}
