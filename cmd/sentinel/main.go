package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"QuantSentinel/internal/config"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to the YAML config `FILE`",
	Value:   "configs/config.yaml",
	Sources: cli.EnvVars("CONFIG_PATH"),
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "sentinel",
		Usage: "Resample minute bars, compute MA/RSI/MACD and alert on confirmed crossovers",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Refresh symbols on a schedule, answer chat commands and publish alerts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "now",
						Usage: "Refresh every symbol once at startup",
					},
				},
				Action: runAction,
			},
			{
				Name:  "scan",
				Usage: "Analyze one symbol once and print the report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "symbol",
						Aliases: []string{"s"},
						Usage:   "Ticker in Yahoo format; defaults to the first configured symbol",
					},
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Usage:   "Days of minute history; defaults to data_source.history_days",
					},
					&cli.BoolFlag{
						Name:  "synthetic",
						Usage: "Skip the live fetch and use generated data",
					},
					&cli.UintFlag{
						Name:  "seed",
						Usage: "Seed for generated data; zero picks one from the clock",
					},
				},
				Action: scanAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
