package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rewired-gh/botia5m/internal/config"
	"github.com/rewired-gh/botia5m/internal/copysource"
	"github.com/rewired-gh/botia5m/internal/doctor"
	"github.com/rewired-gh/botia5m/internal/engine"
	"github.com/rewired-gh/botia5m/internal/execution"
	"github.com/rewired-gh/botia5m/internal/export"
	"github.com/rewired-gh/botia5m/internal/heartbeat"
	"github.com/rewired-gh/botia5m/internal/logger"
	"github.com/rewired-gh/botia5m/internal/marketdata"
	"github.com/rewired-gh/botia5m/internal/metrics"
	"github.com/rewired-gh/botia5m/internal/risk"
	sig "github.com/rewired-gh/botia5m/internal/signal"
	"github.com/rewired-gh/botia5m/internal/storage"
	"github.com/rewired-gh/botia5m/internal/telegram"
)

var configPath = flag.String("config", "config.yml", "Path to configuration file")

const usage = `usage: botia5m [--config PATH] <command> [flags]

commands:
  doctor                         run environment diagnostics
  run [--paper] [--max-seconds N] start the trading loop
  status                         print the last status snapshot
  export --csv PATH              export decisions to CSV
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "doctor":
		err = runDoctor(cfg)
	case "run":
		err = runLoop(cfg, args)
	case "status":
		err = runStatus(cfg)
	case "export":
		err = runExport(cfg, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func runDoctor(cfg *config.Config) error {
	base, err := os.Getwd()
	if err != nil {
		return err
	}
	checks := doctor.Run(context.Background(), doctor.Options{
		BaseDir:      base,
		Driver:       cfg.Data.Driver,
		LedgerSource: cfg.LedgerSource(),
		Timeout:      cfg.Runtime.RequestTimeout,
	})
	for _, c := range checks {
		fmt.Println(c)
	}
	if doctor.Failed(checks) {
		return errors.New("one or more checks failed")
	}
	return nil
}

func runStatus(cfg *config.Config) error {
	text, err := heartbeat.ReadStatus(cfg.Data.StatusPath)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimRight(text, "\n"))
	return nil
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	csvPath := fs.String("csv", "", "Destination CSV file")
	fs.Parse(args)
	if *csvPath == "" {
		return errors.New("--csv is required")
	}

	ledger, err := storage.Open(cfg.Data.Driver, cfg.LedgerSource())
	if err != nil {
		return err
	}
	defer ledger.Close()
	if err := ledger.EnsureSchema(); err != nil {
		return err
	}

	rows, err := ledger.Decisions()
	if err != nil {
		return err
	}
	if err := export.DecisionsToFile(*csvPath, rows); err != nil {
		return err
	}
	fmt.Printf("exported %d rows to %s\n", len(rows), *csvPath)
	return nil
}

func runLoop(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	paper := fs.Bool("paper", false, "Force paper trading")
	maxSeconds := fs.Int("max-seconds", 0, "Stop after this many seconds (0 runs until interrupted)")
	fs.Parse(args)

	// Live gate runs before anything touches the network or the ledger
	if err := cfg.CheckLive(*paper); err != nil {
		return err
	}
	mode := cfg.ModeLabel(*paper)
	executor, err := execution.New(mode)
	if err != nil {
		return err
	}

	lg, err := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Data.LogPath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()

	// Initialize storage
	ledger, err := storage.Open(cfg.Data.Driver, cfg.LedgerSource())
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			lg.Error("failed to close ledger", err, nil)
		}
	}()
	if err := ledger.EnsureSchema(); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.Addr, lg)
		defer srv.Close()
		lg.Info("metrics_listening", logger.Fields{"addr": cfg.Metrics.Addr})
	}

	var status heartbeat.Writer = heartbeat.NewFileWriter()
	if cfg.Redis.Enabled {
		mirror, err := heartbeat.NewRedisMirror(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.StatusKey)
		if err != nil {
			lg.Warn("redis_mirror_disabled", logger.Fields{"error": err.Error()})
		} else {
			defer mirror.Close()
			status = heartbeat.Multi{status, mirror}
		}
	}

	var alerts engine.Alerter
	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		alerts = client
	}

	market := marketdata.NewClient(cfg.Runtime.RequestTimeout, marketdata.ClientConfig{})
	base, ceiling := cfg.BackoffBounds()

	loop := engine.New(engine.Options{
		Mode:              mode,
		Symbol:            cfg.Market.Symbol,
		DiscoveryURLs:     cfg.Market.DiscoveryURLs,
		ReferenceURLs:     cfg.Market.ReferenceURLs,
		LoopInterval:      cfg.LoopInterval(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		BaseBackoff:       base,
		MaxBackoff:        ceiling,
		StatusPath:        cfg.Data.StatusPath,
		MaxDuration:       time.Duration(*maxSeconds) * time.Second,
	}, engine.Deps{
		Discovery: market,
		Prices:    market,
		Signal:    sig.NewThreshold(cfg.Risk.MinEdgeProbability, cfg.Risk.UnitSize),
		Guard: risk.NewBasic(risk.Limits{
			MaxSize:           cfg.Risk.MaxSize,
			Cooldown:          cfg.Cooldown(),
			MaxTradesPerRound: cfg.Risk.MaxTradesPerRound,
		}),
		Execution: executor,
		Copy:      copysource.NewStub(),
		Status:    status,
		Ledger:    ledger,
		Log:       lg,
		Alerts:    alerts,
	})

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		lg.Error("engine_failed", err, nil)
		return err
	}
	return nil
}
