package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vexchain/config"
	"vexchain/core"
	"vexchain/core/events"
	"vexchain/core/state"
	"vexchain/core/types"
	"vexchain/observability"
	"vexchain/observability/logging"
	"vexchain/storage"
)

const envVar = "VEX_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	replayFile := flag.String("replay", "", "Path to a newline-delimited JSON instruction stream to apply on startup")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("vexchaind", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := seedPolicy(manager, cfg); err != nil {
		logger.Error("Failed to seed genesis policy", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.Economy()
	emitter := multiEmitter{
		logEmitter{logger: logger},
		metricsEmitter{metrics: metrics, manager: manager},
	}
	processor := core.NewProcessor(manager, emitter)
	processor.SetMetrics(metrics)

	if *replayFile != "" {
		if err := replay(processor, *replayFile, logger); err != nil {
			logger.Error("Replay failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Replay finished", slog.String("path", *replayFile))
	}

	server := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics listener started", slog.String("address", cfg.MetricsAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics listener failed", slog.Any("error", err))
		}
	}()

	logger.Info("Node started",
		slog.String("network", cfg.NetworkName),
		slog.String("dataDir", cfg.DataDir))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	if err := server.Close(); err != nil {
		logger.Error("Metrics listener close failed", slog.Any("error", err))
	}
}

// seedPolicy writes the configured genesis policy on first boot. A policy
// already on disk wins; later changes go through the policy.set instruction.
func seedPolicy(manager *state.Manager, cfg *config.Config) error {
	stored, err := manager.Policy()
	if err != nil {
		return err
	}
	if stored != nil {
		return nil
	}
	seed := cfg.Policy
	return manager.PutPolicy(&seed)
}

// multiEmitter fans each event out to every configured sink.
type multiEmitter []events.Emitter

func (m multiEmitter) Emit(ev events.Event) {
	for _, sink := range m {
		sink.Emit(ev)
	}
}

// metricsEmitter translates chain events into Prometheus observations and
// refreshes the state-derived gauges.
type metricsEmitter struct {
	metrics *observability.EconomyMetrics
	manager *state.Manager
}

func (m metricsEmitter) Emit(ev events.Event) {
	switch e := ev.(type) {
	case events.Swapped:
		direction, feeToken := "sell_vex", "vex"
		if e.Direction == types.SwapBuyVEX {
			direction, feeToken = "buy_vex", "vusd"
		}
		m.metrics.ObserveSwap(direction, feeToken, e.AmountIn, e.Fee, e.Tax)
	case events.VaultLiquidated:
		m.metrics.ObserveLiquidation()
	}
	if pool, err := m.manager.AmmPool(); err == nil && pool != nil {
		m.metrics.SetReserves(pool.ReserveVEX, pool.ReserveVUSD)
	}
	if globals, err := m.manager.VaultGlobals(); err == nil && globals != nil {
		m.metrics.SetTotalDebt(globals.TotalDebt)
	}
}

// logEmitter forwards chain events to the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(ev events.Event) {
	attrs := []any{slog.String("type", ev.EventType())}
	if typed, ok := ev.(interface{ Event() *types.Event }); ok {
		if payload := typed.Event(); payload != nil {
			for key, value := range payload.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	l.logger.Info("Event emitted", attrs...)
}
