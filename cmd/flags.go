package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kidoz/patch-compliance-check/internal/config"
)

// targetFlags are the per-invocation overrides shared by run and inspect.
type targetFlags struct {
	instanceID string
	region     string
	ruleName   string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.instanceID, "instance-id", "", "managed instance ID to test (overrides target.instance_id)")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (overrides aws.region)")
	cmd.Flags().StringVar(&f.ruleName, "rule-name", "", "AWS Config rule name (overrides compliance.rule_name)")
}

// apply copies explicitly set flags over the loaded configuration.
func (f *targetFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("instance-id") {
		cfg.Target.InstanceID = f.instanceID
	}
	if cmd.Flags().Changed("region") {
		cfg.AWS.Region = f.region
	}
	if cmd.Flags().Changed("rule-name") {
		cfg.Compliance.RuleName = f.ruleName
	}
}
