package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hesper/config"
	"hesper/core/bank"
	"hesper/core/state"
	"hesper/gateway/middleware"
	"hesper/gateway/routes"
	nativecommon "hesper/native/common"
	"hesper/native/fixedmath"
	"hesper/native/flywheel"
	"hesper/native/risk"
	"hesper/native/stable"
	"hesper/observability"
	"hesper/observability/logging"
	"hesper/observability/otel"
	"hesper/storage"
)

func main() {
	configFile := flag.String("config", "./hesper.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Service.Name, cfg.Service.Environment, logging.ParseLevel(cfg.Service.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Metrics || cfg.Telemetry.Traces {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: cfg.Service.Name,
			Environment: cfg.Service.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     otel.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			logger.Error("init telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", slog.Any("error", err))
			}
		}()
	}

	var db storage.Database
	if cfg.Storage.Path != "" {
		ldb, err := storage.NewLevelDB(cfg.Storage.Path)
		if err != nil {
			logger.Error("open database", slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
		logger.Info("opened database", "path", cfg.Storage.Path)
	} else {
		db = storage.NewMemDB()
		logger.Warn("no storage path configured, state is in-memory only")
	}
	defer db.Close()

	engines, ledgers, oracle, err := buildEngines(cfg, db)
	if err != nil {
		logger.Error("wire engines", slog.Any("error", err))
		os.Exit(1)
	}
	if err := seedMarkets(cfg, engines.Risk, ledgers, oracle, logger); err != nil {
		logger.Error("seed markets", slog.Any("error", err))
		os.Exit(1)
	}

	handler := routes.New(routes.Config{
		Engines:       engines,
		Logger:        logger,
		RateLimiter:   middleware.NewRateLimiter(cfg.Gateway.RateLimitRPS, cfg.Gateway.RateLimitBurst, logger),
		Observability: middleware.NewObservability(cfg.Service.Name, logger),
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    cfg.Gateway.Auth.Enabled,
			HMACSecret: cfg.Gateway.Auth.HMACSecret,
			Issuer:     cfg.Gateway.Auth.Issuer,
			Audience:   cfg.Gateway.Auth.Audience,
		}, logger),
	})

	server := &http.Server{
		Addr:              cfg.Gateway.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "address", cfg.Gateway.ListenAddress)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// buildEngines wires the three module engines over shared state and the
// in-process collaborator bank.
func buildEngines(cfg *config.Config, db storage.Database) (routes.Engines, *bank.Set, *bank.Oracle, error) {
	manager := state.NewManager(db)
	ledgers := bank.NewSet()
	oracle := bank.NewOracle()

	treasury := config.Address("0x0000000000000000000000000000000000000001")
	if cfg.Flywheel.Treasury != "" {
		treasury = config.Address(cfg.Flywheel.Treasury)
	}
	token := bank.NewToken(treasury)
	controller := bank.NewStableController()

	pauses := nativecommon.StaticPauses{}
	for _, action := range cfg.Pauses {
		pauses[action] = true
	}
	for _, action := range []string{
		nativecommon.ActionMint, nativecommon.ActionRedeem, nativecommon.ActionBorrow,
		nativecommon.ActionRepay, nativecommon.ActionSeize, nativecommon.ActionTransfer,
		nativecommon.ActionStableMint, nativecommon.ActionStableRepay, nativecommon.ActionClaim,
	} {
		observability.Risk().SetPause(action, pauses[action])
	}

	riskEngine := risk.NewEngine()
	riskEngine.SetState(manager)
	riskEngine.SetLedgerSource(ledgers.RiskSource())
	riskEngine.SetOracle(oracle)
	riskEngine.SetPauses(pauses)
	if err := riskEngine.SetCloseFactor(fixedmath.ExpFromBps(cfg.Risk.CloseFactorBps)); err != nil {
		return routes.Engines{}, nil, nil, err
	}
	if err := riskEngine.SetLiquidationIncentive(fixedmath.ExpFromBps(cfg.Risk.LiquidationIncentiveBps)); err != nil {
		return routes.Engines{}, nil, nil, err
	}
	if err := riskEngine.SetMaxAssets(cfg.Risk.MaxAssets); err != nil {
		return routes.Engines{}, nil, nil, err
	}

	rewards := flywheel.NewEngine()
	rewards.SetState(manager)
	rewards.SetLedgerSource(ledgers.FlywheelSource())
	rewards.SetOracle(oracle)
	rewards.SetRegistry(riskEngine)
	rewards.SetRewardToken(token, treasury)
	rewards.SetVault(meteredVault{sink: bank.NewVaultSink()})
	rewards.SetEmissionRate(config.Amount(cfg.Flywheel.EmissionRatePerBlock))
	rewards.SetStableMintRate(config.Amount(cfg.Flywheel.StableMintRatePerBlock))
	rewards.SetClaimCaps(cfg.Flywheel.MaxClaimHolders, cfg.Flywheel.MaxClaimMarkets)
	rewards.SetBlockSource(wallBlocks())
	rewards.SetPauses(pauses)

	stableEngine := stable.NewEngine()
	stableEngine.SetState(manager)
	stableEngine.SetMembershipSource(riskEngine)
	stableEngine.SetLedgerSource(ledgers.StableSource())
	stableEngine.SetOracle(oracle)
	stableEngine.SetController(controller)
	stableEngine.SetPauses(pauses)
	if err := stableEngine.SetMintRate(cfg.Stable.MintRateBps); err != nil {
		return routes.Engines{}, nil, nil, err
	}

	riskEngine.SetStableDebts(stableEngine)
	riskEngine.SetRewards(rewards)
	rewards.SetStableViews(stableEngine, stableEngine)

	if cfg.Flywheel.Vault.Address != "" {
		err := rewards.SetVaultSchedule(
			config.Address(cfg.Flywheel.Vault.Address),
			config.Amount(cfg.Flywheel.Vault.RatePerBlock),
			config.Amount(cfg.Flywheel.Vault.MinBatch),
			cfg.Flywheel.Vault.StartBlock,
		)
		if err != nil {
			return routes.Engines{}, nil, nil, err
		}
	}

	engines := routes.Engines{Risk: riskEngine, Rewards: rewards, Stable: stableEngine}
	return engines, ledgers, oracle, nil
}

// wallBlocks derives block heights from wall-clock seconds, so per-block
// rates behave as per-second rates in a standalone deployment.
func wallBlocks() flywheel.BlockSource {
	return func() uint64 {
		return uint64(time.Now().Unix())
	}
}

// seedMarkets lists the configured markets, posting prices before the
// collateral factors that depend on them. Already-listed markets are left
// untouched so restarts are idempotent.
func seedMarkets(cfg *config.Config, engine *risk.Engine, ledgers *bank.Set, oracle *bank.Oracle, logger *slog.Logger) error {
	for _, seed := range cfg.Markets {
		market := config.Address(seed.Address)
		ledgers.Add(market)
		if price := config.Amount(seed.Price); !price.IsZero() {
			oracle.SetPrice(market, fixedmath.NewExp(price))
		}
		listed, err := engine.IsListed(market)
		if err != nil {
			return err
		}
		if listed {
			continue
		}
		if err := engine.SupportMarket(market); err != nil {
			return err
		}
		if seed.CollateralFactorBps > 0 {
			if err := engine.SetCollateralFactor(market, fixedmath.ExpFromBps(seed.CollateralFactorBps)); err != nil {
				return err
			}
		}
		if seed.BorrowCap != "" {
			if err := engine.SetBorrowCap(market, config.Amount(seed.BorrowCap)); err != nil {
				return err
			}
		}
		if seed.RewardEligible {
			if err := engine.SetRewardEligibility(market, true); err != nil {
				return err
			}
		}
		logger.Info("market listed", "market", market.Hex())
	}
	return nil
}

// meteredVault counts vault releases before forwarding the notification.
type meteredVault struct {
	sink *bank.VaultSink
}

func (v meteredVault) NotifyPendingRewardsChanged() {
	observability.Flywheel().RecordVaultRelease()
	v.sink.NotifyPendingRewardsChanged()
}
