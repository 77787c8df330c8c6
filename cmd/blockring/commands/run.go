package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aradilov/blockring/internal/config"
	"github.com/aradilov/blockring/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagVerbose bool
	flagValues  = config.Default()
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run producers and consumers against a block ring",
	Long: `Run producers and consumers against a block ring.

Settings come from the defaults, then the --config file, then any flag
given explicitly on the command line.

Example:
  blockring run --config demo.yaml --producers 2 --consumers 4`,
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Log every record")
	f.IntVar(&flagValues.Blocks, "blocks", flagValues.Blocks, "Number of ring slots")
	f.IntVar(&flagValues.BlockSize, "block-size", flagValues.BlockSize, "Slot capacity in bytes")
	f.IntVar(&flagValues.Producers, "producers", flagValues.Producers, "Number of producers")
	f.IntVar(&flagValues.Consumers, "consumers", flagValues.Consumers, "Number of consumers")
	f.DurationVar(&flagValues.Duration, "duration", flagValues.Duration, "Run time (0 runs until interrupted)")
	f.DurationVar(&flagValues.ProduceInterval, "interval", flagValues.ProduceInterval, "Pause between records of one producer")
	f.DurationVar(&flagValues.Jitter, "jitter", flagValues.Jitter, "Random extra pause of up to this much")
	f.DurationVar(&flagValues.ReadTimeout, "read-timeout", flagValues.ReadTimeout, "Consumer wait before re-checking for shutdown")
	f.IntVar(&flagValues.PayloadSize, "payload-size", flagValues.PayloadSize, "Payload bytes per record")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	logger := slog.Default()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := pipeline.Run(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"sent=%d received=%d drained=%d truncated=%d corrupt=%d ring.writes=%d ring.reads=%d ring.read_timeouts=%d\n",
		s.Sent, s.Received, s.Drained, s.Truncated, s.Corrupt,
		s.Ring.Writes, s.Ring.Reads, s.Ring.ReadTimeouts)
	return nil
}

// resolveConfig layers the config file under explicitly set flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	if flagConfig == "" {
		return flagValues, nil
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	changed := cmd.Flags().Changed
	override(changed, "blocks", &cfg.Blocks, &flagValues.Blocks)
	override(changed, "block-size", &cfg.BlockSize, &flagValues.BlockSize)
	override(changed, "producers", &cfg.Producers, &flagValues.Producers)
	override(changed, "consumers", &cfg.Consumers, &flagValues.Consumers)
	override(changed, "duration", &cfg.Duration, &flagValues.Duration)
	override(changed, "interval", &cfg.ProduceInterval, &flagValues.ProduceInterval)
	override(changed, "jitter", &cfg.Jitter, &flagValues.Jitter)
	override(changed, "read-timeout", &cfg.ReadTimeout, &flagValues.ReadTimeout)
	override(changed, "payload-size", &cfg.PayloadSize, &flagValues.PayloadSize)
	return cfg, nil
}

func override[T any](changed func(string) bool, name string, dst, src *T) {
	if changed(name) {
		*dst = *src
	}
}
