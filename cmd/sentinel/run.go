package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"QuantSentinel/internal/collector"
	"QuantSentinel/internal/config"
	"QuantSentinel/internal/logger"
	"QuantSentinel/internal/metrics"
	"QuantSentinel/internal/notifier"
	"QuantSentinel/internal/pipeline"
	"QuantSentinel/internal/recorder"
	"QuantSentinel/internal/scheduler"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	l, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer l.Sync() //nolint:errcheck
	log := l.Logger
	log.Info("QuantSentinel starting", zap.Strings("symbols", cfg.DataSource.Symbols))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, reg)
		defer srv.Close()
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
	}

	col, err := newCollector(cfg, m, log)
	if err != nil {
		return err
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	var (
		notifiers notifier.Multi
		tn        *notifier.TelegramNotifier
	)
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		notifiers = append(notifiers, tn)
	}
	if cfg.Redis.Addr != "" {
		rp, err := notifier.NewRedisPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Channel)
		if err != nil {
			log.Warn("redis unavailable, signals will not be published", zap.Error(err))
		} else {
			notifiers = append(notifiers, rp)
			defer rp.Close()
		}
	}
	var sn notifier.SignalNotifier
	if len(notifiers) > 0 {
		sn = notifiers
	}

	sched := scheduler.NewScheduler(ctx, col, sn, rec, cfg.DataSource.Symbols, m, log)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if cmd.Bool("now") {
		go func() {
			if err := sched.RefreshAll(ctx); err != nil {
				log.Error("startup refresh failed", zap.Error(err))
			}
		}()
	}

	log.Info("QuantSentinel is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return nil
}

// newCollector wires the live and synthetic fetchers with a pipeline.
func newCollector(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*collector.Collector, error) {
	p, err := pipeline.New(cfg.Analysis)
	if err != nil {
		return nil, err
	}
	var liveFetcher collector.Fetcher
	if cfg.DataSource.Live {
		liveFetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}
	fallback := &collector.SyntheticFetcher{Seed: cfg.DataSource.Seed, Now: time.Now}
	return collector.NewCollector(liveFetcher, fallback, p, cfg.DataSource.HistoryDays, m, log), nil
}
