package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quantleap/intraday-engine/internal/backtest"
	"github.com/quantleap/intraday-engine/internal/broker"
	"github.com/quantleap/intraday-engine/internal/engine"
	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/metrics"
)

// runAction starts one live trading session and blocks until session end or
// an interrupt.
func runAction(ctx context.Context, cmd *cli.Command) error {
	// Local .env files carry the broker token in development; missing is
	// fine.
	_ = godotenv.Load()

	config, err := engine.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	if token := os.Getenv("BROKER_ACCESS_TOKEN"); token != "" {
		config.Broker.AccessToken = token
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := cmd.String("metrics-addr"); addr != "" {
		go serveMetrics(ctx, addr, log)
	}

	eng, err := engine.New(config, broker.NewRestBroker(config.Broker, log), log)
	if err != nil {
		return err
	}

	log.Info("starting session",
		zap.String("underlying", config.Underlying),
		zap.String("mode", string(config.Strategy.Mode)),
	)

	return eng.Run(ctx)
}

// replayAction runs a recorded session fixture through the engine and prints
// the resulting trade log.
func replayAction(ctx context.Context, cmd *cli.Command) error {
	config, err := engine.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cmd.String("fixture"))
	if err != nil {
		return err
	}

	var fixture backtest.Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	driver, err := backtest.NewDriver(config, fixture, log)
	if err != nil {
		return err
	}

	if err := driver.Run(ctx); err != nil {
		return err
	}

	trades := driver.Engine().Trades()
	if err := trades.WriteCSV(os.Stdout); err != nil {
		return err
	}

	fmt.Printf("\n%d records, day P&L %.2f\n", trades.Len(), trades.DayPnL())

	return nil
}

// serveMetrics exposes the Prometheus endpoint until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", zap.Error(err))
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the engine yaml config",
		Value:   "config.yaml",
	}

	cmd := &cli.Command{
		Name:  "intraday-engine",
		Usage: "Intraday short-options engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one live trading session",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Prometheus listen address; empty disables",
						Value: ":9182",
					},
				},
				Action: runAction,
			},
			{
				Name:  "replay",
				Usage: "Replay a recorded session fixture",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "fixture",
						Aliases:  []string{"f"},
						Usage:    "Path to the recorded session yaml",
						Required: true,
					},
				},
				Action: replayAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
