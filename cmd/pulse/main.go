// Command pulse is the entry point for the trading engine: replaying
// strategies over stored candles, serving evaluations over HTTP, and
// downloading market data.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/quantive-lab/pulse-trading/internal/config"
	"github.com/quantive-lab/pulse-trading/internal/datasource"
	"github.com/quantive-lab/pulse-trading/internal/executor"
	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/risk"
	"github.com/quantive-lab/pulse-trading/internal/server"
	"github.com/quantive-lab/pulse-trading/internal/strategy"
	"github.com/quantive-lab/pulse-trading/internal/version"
	"github.com/quantive-lab/pulse-trading/pkg/marketdata"
)

func main() {
	cmd := &cli.Command{
		Name:  "pulse",
		Usage: "Bar-by-bar trading strategy engine",
		Commands: []*cli.Command{
			replayCommand(),
			serveCommand(),
			downloadCommand(),
			schemaCommand(),
			versionCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the YAML configuration file",
		Value:   "config.yaml",
	}
}

// buildRegistry registers the strategies known to the engine. New strategies
// are added here; there is no dynamic loading.
func buildRegistry(cfg config.Config, log *logger.Logger) (*strategy.Registry, error) {
	registry := strategy.NewRegistry()

	err := registry.Register(cfg.Strategy.Name, func() (strategy.Strategy, error) {
		sizer, err := risk.NewFixedFractionSizer(
			decimal.NewFromFloat(cfg.Risk.Capital),
			decimal.NewFromFloat(cfg.Risk.RiskFraction))
		if err != nil {
			return nil, err
		}

		strat, err := strategy.NewRSIScaleIn(cfg.Strategy.Name, cfg.Strategy.RSIScaleInConfig, sizer, log)
		if err != nil {
			return nil, err
		}

		*strat.Live() = *cfg.LiveSettings()

		return strat, nil
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Replay the configured strategy over stored candle history",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"s"},
				Usage:   "Symbol to replay; defaults to the configured data symbol",
			},
			&cli.BoolFlag{
				Name:  "enforce-guard",
				Usage: "Drop signals rejected by the live-execution guard instead of only counting them",
			},
		},
		Action: replayAction,
	}
}

func replayAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stdout sync failure is harmless on exit

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	symbol := cmd.String("symbol")
	if symbol == "" {
		symbol = cfg.Data.Symbol
	}

	if symbol == "" {
		return fmt.Errorf("no symbol given and none configured")
	}

	store, err := datasource.NewCandleStore(cfg.Data.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	window, err := store.Window(symbol, 0)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}

	strat, err := registry.Create(cfg.Strategy.Name)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(window),
		progressbar.OptionSetDescription(fmt.Sprintf("Replaying %s", symbol)),
		progressbar.OptionShowCount())

	exec, err := executor.NewExecutor(strat, executor.Config{
		Symbol:       symbol,
		Balance:      decimal.NewFromFloat(cfg.Risk.Capital),
		EnforceGuard: cmd.Bool("enforce-guard"),
		OnProgress: func(current, _ int) {
			bar.Set(current) //nolint:errcheck // progress display only
		},
	}, log)
	if err != nil {
		return err
	}

	result, err := exec.Run(ctx, window)
	if err != nil {
		return err
	}

	bar.Finish() //nolint:errcheck // progress display only

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve strategy evaluations over HTTP",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Listen address",
				Value:   ":8080",
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stdout sync failure is harmless on exit

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}

	srv := server.NewServer(registry, log)
	if err := srv.Start(cmd.String("address")); err != nil {
		return err
	}

	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-notifyCtx.Done()

	return srv.Stop()
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical candles into the candle store",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol to download",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format, defaults to today",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s or %s)", marketdata.ProviderBinance, marketdata.ProviderPolygon),
				Value:   string(marketdata.ProviderBinance),
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stdout sync failure is harmless on exit

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	store, err := datasource.NewCandleStore(cfg.Data.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	providerType := marketdata.ProviderType(cmd.String("provider"))

	provider, err := marketdata.NewProvider(providerType, os.Getenv("POLYGON_API_KEY"))
	if err != nil {
		return err
	}

	provider.ConfigWriter(store)

	ticker := cmd.String("ticker")

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", ticker)),
		progressbar.OptionShowCount())

	onProgress := func(current, total float64, _ string) {
		if total > 0 {
			bar.Set(int(current / total * 100)) //nolint:errcheck // progress display only
		}
	}

	err = provider.Download(ctx, ticker, cmd.Timestamp("start"), cmd.Timestamp("end"), 1, models.Minute, onProgress)
	if err != nil {
		return err
	}

	bar.Finish() //nolint:errcheck // progress display only

	count, err := store.Count(ticker)
	if err != nil {
		return err
	}

	fmt.Printf("\nStored %d bars for %s.\n", count, ticker)

	return nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the configuration file",
		Action: func(_ context.Context, _ *cli.Command) error {
			schema, err := config.GenerateSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Println(schema)

			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the engine version",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Println(version.GetVersion())

			return nil
		},
	}
}
