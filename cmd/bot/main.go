package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/pierrick-fonquerne/trading-bot/internal/config"
	"github.com/pierrick-fonquerne/trading-bot/internal/engine"
	"github.com/pierrick-fonquerne/trading-bot/internal/exchange"
	"github.com/pierrick-fonquerne/trading-bot/internal/execution"
	"github.com/pierrick-fonquerne/trading-bot/internal/metrics"
	"github.com/pierrick-fonquerne/trading-bot/internal/risk"
	"github.com/pierrick-fonquerne/trading-bot/internal/strategy"
	"github.com/pierrick-fonquerne/trading-bot/internal/util"
	"github.com/pierrick-fonquerne/trading-bot/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	bootLog := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			bootLog.Fatal().Err(err).Msg("load config")
		}
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(); err != nil {
		bootLog.Fatal().Err(err).Msg("apply environment")
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	adapter, err := exchange.New(cfg.Exchange.Name, exchange.Settings{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Symbols:   []string{cfg.Exchange.Symbol},
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build exchange adapter")
	}
	if runner, ok := adapter.(interface{ Run(context.Context) error }); ok {
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("market data stream stopped")
				cancel()
			}
		}()
	}

	strat, err := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy")
	}

	eng, err := engine.New(engine.Config{
		Symbol:        cfg.Exchange.Symbol,
		PollInterval:  time.Duration(cfg.Bot.PollIntervalSecs * float64(time.Second)),
		TradeQuantity: cfg.Bot.TradeQuantity,
		Mode:          execution.Mode(cfg.Bot.Mode),
		MaxHistory:    cfg.Bot.MaxHistory,
		Limits:        risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade},
	}, adapter, strat, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	_ = web.Serve(ctx, cfg.App.StatusAddr, eng, log)
	log.Info().Str("addr", cfg.App.StatusAddr).Msg("status surface up")

	eng.Start(ctx)
	log.Info().Str("sym", cfg.Exchange.Symbol).Str("strategy", strat.Name()).Str("mode", cfg.Bot.Mode).Msg("trading bot started")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	eng.Stop()
}
