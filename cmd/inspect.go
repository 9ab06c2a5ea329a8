package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kidoz/patch-compliance-check/internal/remediation"
)

var inspectTarget targetFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show patch and compliance state of an instance without changing it",
	Long: `Show the current state of a managed instance: SSM membership, EC2
details, patch counts, the compliance rule's verdict and the most recent
remediation automation targeting it.

No scan is run and no rule evaluation is triggered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		inspectTarget.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.ValidateTarget(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		t, err := initTester(cfg, GetLogger(), GetReporter())
		if err != nil {
			return fmt.Errorf("failed to initialize tester: %w", err)
		}

		if _, err := t.Inspect(ctx, remediation.Options{
			InstanceID: cfg.Target.InstanceID,
			RuleName:   cfg.Compliance.RuleName,
		}); err != nil {
			return fmt.Errorf("inspect failed: %w", err)
		}
		return nil
	},
}

func init() {
	inspectTarget.register(inspectCmd)

	rootCmd.AddCommand(inspectCmd)
}
