package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/remediation"
)

var (
	runTarget   targetFlags
	runWaitTime int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the end-to-end remediation check against one instance",
	Long: `Run the full remediation check against a managed instance.

This command:
1. Confirms the instance is managed by Systems Manager
2. Records the current patch state
3. Runs AWS-RunPatchBaseline (Scan) to create a non-compliant state
4. Forces an evaluation of the AWS Config rule
5. Polls until the rule reports the instance NON_COMPLIANT
6. Looks for the remediation automation targeting the instance
7. Waits for that automation to finish
8. Records the final patch state and prints a before/after summary

The command exits non-zero only when the instance is not managed, the
scan cannot be run, or the rule evaluation is rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := GetLogger()
		cfg := GetConfig()

		runTarget.apply(cmd, cfg)
		if cmd.Flags().Changed("wait-time") {
			cfg.Remediation.WaitTime = runWaitTime
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.ValidateTarget(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		t, err := initTester(cfg, log, GetReporter())
		if err != nil {
			return fmt.Errorf("failed to initialize tester: %w", err)
		}

		log.Debug("Starting remediation check",
			zap.String("instance", cfg.Target.InstanceID),
			zap.String("region", cfg.AWS.Region),
			zap.String("rule", cfg.Compliance.RuleName),
		)

		_, err = t.Run(ctx, remediation.Options{
			InstanceID: cfg.Target.InstanceID,
			RuleName:   cfg.Compliance.RuleName,
			WaitTime:   time.Duration(cfg.Remediation.WaitTime) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("remediation check failed: %w", err)
		}
		return nil
	},
}

func init() {
	runTarget.register(runCmd)
	runCmd.Flags().IntVar(&runWaitTime, "wait-time", 0, "seconds to wait for the remediation automation (overrides remediation.wait_time, default 300)")

	rootCmd.AddCommand(runCmd)
}
