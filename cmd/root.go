package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kidoz/patch-compliance-check/internal/config"
	"github.com/kidoz/patch-compliance-check/internal/report"
	"github.com/kidoz/patch-compliance-check/internal/telemetry"
)

var (
	cfgFile      string
	verbose      bool
	noColor      bool
	cfg          *config.Config
	log          *zap.Logger
	out          *report.Reporter
	otelShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "pcc",
	Short: "Patch compliance check - end-to-end test of automated patch remediation",
	Long: `Patch compliance check (pcc) validates an automated patch remediation
pipeline built on AWS Systems Manager and AWS Config.

It forces a managed instance into a non-compliant patch state, triggers
a compliance rule evaluation, waits for the remediation automation the
rule launches, and compares missing patch counts before and after.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		}

		// Skip config loading for commands that handle their own config
		if cmd.Name() == "version" || cmd.Name() == "migrate-config" {
			return nil
		}

		log = newLogger(verbose)

		out = report.New(os.Stdout)
		if color.NoColor {
			out.DisableColor()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		otelShutdown, err = telemetry.Init(context.Background(), &cfg.Telemetry, verbose)
		if err != nil {
			return fmt.Errorf("failed to init telemetry: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := execute(rootCmd); err != nil {
		os.Exit(1)
	}
}

// execute runs c and then flushes logs and pending spans. Cobra skips
// PersistentPostRunE when RunE fails, so the flush lives here.
func execute(c *cobra.Command) error {
	err := c.Execute()
	if serr := shutdown(context.Background()); serr != nil {
		fmt.Fprintf(os.Stderr, "WARNING: telemetry shutdown: %v\n", serr)
	}
	return err
}

func shutdown(ctx context.Context) error {
	if log != nil {
		_ = log.Sync()
	}
	if otelShutdown == nil {
		return nil
	}
	fn := otelShutdown
	otelShutdown = nil
	return fn(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.FindConfigPath(), "config file path (YAML or legacy INI)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured status lines")
}

func GetConfig() *config.Config {
	return cfg
}

func GetLogger() *zap.Logger {
	return log
}

func GetReporter() *report.Reporter {
	return out
}

func newLogger(verbose bool) *zap.Logger {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			MessageKey:     "M",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}
	logger, _ := cfg.Build()
	return logger
}
