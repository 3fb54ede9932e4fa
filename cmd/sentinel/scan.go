package main

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"QuantSentinel/internal/logger"
	"QuantSentinel/internal/notifier"
)

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "")

func scanAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if s := cmd.String("symbol"); s != "" {
		cfg.DataSource.Symbols = []string{s}
	}
	if d := int(cmd.Int("days")); d > 0 {
		cfg.DataSource.HistoryDays = d
	}
	if cmd.Bool("synthetic") {
		cfg.DataSource.Live = false
	}
	if seed := uint64(cmd.Uint("seed")); seed != 0 {
		cfg.DataSource.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// stdout carries the report.
	l, err := logger.New(cfg.Log.Level, "stderr")
	if err != nil {
		return err
	}
	defer l.Sync() //nolint:errcheck

	col, err := newCollector(cfg, nil, l.Logger)
	if err != nil {
		return err
	}
	symbol := cfg.DataSource.Symbols[0]
	snap, err := col.Collect(ctx, symbol)
	if err != nil {
		l.Error("scan failed", zap.String("symbol", symbol), zap.Error(err))
		return err
	}

	report := notifier.FormatReport(notifier.ReportFromSnapshot(snap))
	_, err = fmt.Fprintln(os.Stdout, html.UnescapeString(tagStripper.Replace(report)))
	return err
}
