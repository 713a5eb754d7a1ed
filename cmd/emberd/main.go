package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"emberchain/config"
	"emberchain/core/events"
	"emberchain/gateway/middleware"
	"emberchain/gateway/routes"
	"emberchain/native/bank"
	"emberchain/native/bonding"
	"emberchain/observability/logging"
	"emberchain/observability/metrics"
	"emberchain/state"
	"emberchain/storage"
)

// pauseSet is the daemon's static pause switchboard, populated from
// configuration at startup.
type pauseSet map[string]struct{}

func (p pauseSet) IsPaused(module string) bool {
	_, ok := p[strings.ToLower(strings.TrimSpace(module))]
	return ok
}

func newPauseSet(modules []string) pauseSet {
	set := make(pauseSet, len(modules))
	for _, module := range modules {
		trimmed := strings.ToLower(strings.TrimSpace(module))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func main() {
	configPath := flag.String("config", "./config.toml", "path to the emberd configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "emberd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("emberd", cfg.Environment)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	manager := state.NewManager(db)

	owner, err := config.Address(cfg.OwnerAddress)
	if err != nil {
		return fmt.Errorf("owner address: %w", err)
	}
	treasury, err := config.Address(cfg.TreasuryAddress)
	if err != nil {
		return fmt.Errorf("treasury address: %w", err)
	}
	custody, err := config.Address(cfg.CustodyAddress)
	if err != nil {
		return fmt.Errorf("custody address: %w", err)
	}
	maxBondPerEpoch, err := cfg.MaxBondPerEpoch()
	if err != nil {
		return err
	}
	minBondValue, err := cfg.MinBondValue()
	if err != nil {
		return err
	}

	pauses := newPauseSet(cfg.PausedModules)
	ledger := bank.NewLedger(manager, cfg.NativeSymbol)

	oracle := bonding.NewFeedOracle()
	valuer := bonding.NewValuer(oracle, nil)
	valuer.SetBaseFeed(cfg.BaseFeed)
	valuer.SetMaxQuoteAge(time.Duration(cfg.MaxQuoteAgeSeconds) * time.Second)

	registry := bonding.NewRegistry(manager, owner)
	registry.SetPauses(pauses)

	engine := bonding.NewEngine()
	engine.SetState(manager)
	engine.SetRegistry(registry)
	engine.SetValuer(valuer)
	engine.SetTransferor(ledger)
	engine.SetMinter(ledger)
	engine.SetPauses(pauses)
	engine.SetTreasury(treasury)
	engine.SetCustody(custody)
	engine.SetEmitter(events.MultiEmitter{metrics.Bonding()})
	engine.SetParams(bonding.Params{
		NativeFeed:          cfg.NativeSymbol,
		VestingSeconds:      cfg.VestingSeconds,
		EpochSeconds:        cfg.EpochSeconds,
		MaxBondPerEpoch:     maxBondPerEpoch,
		MinBondValue:        minBondValue,
		SwapDeadlineSeconds: cfg.SwapDeadlineSeconds,
	})

	observability := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "emberd",
		LogRequests: true,
		Enabled:     true,
	}, logger)
	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}, logger)

	handler := routes.New(routes.Config{
		Engine:        engine,
		Registry:      registry,
		Oracle:        oracle,
		RateLimiter:   limiter,
		Observability: observability,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddress, "data_dir", cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}
