package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kidoz/patch-compliance-check/internal/config"
)

var (
	migrateOutput string
	migrateForce  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate-config [INI_FILE]",
	Short: "Convert a legacy INI config file to YAML",
	Long: `Convert a legacy INI config file to the YAML format.

Only values that differ from the built-in defaults are written, plus
aws.region. Unrecognized INI keys are reported and skipped. Without
--output the YAML is printed to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := cfgFile
		if len(args) == 1 {
			src = args[0]
		}
		if src == "" {
			return errors.New("no INI config file given")
		}

		cfg, warnings, err := config.LoadINIWithWarnings(src)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
		}

		data, err := renderYAML(cfg)
		if err != nil {
			return err
		}

		if migrateOutput == "" || migrateOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if _, err := os.Stat(migrateOutput); err == nil && !migrateForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", migrateOutput)
		}
		if err := os.WriteFile(migrateOutput, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", migrateOutput, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", migrateOutput)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateOutput, "output", "o", "", "write YAML to this file instead of stdout")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "overwrite an existing output file")

	rootCmd.AddCommand(migrateCmd)
}

// yamlSection collects the non-default keys of one top-level section.
type yamlSection struct {
	name  string
	lines []string
}

func (s *yamlSection) addStr(key, val, def string) {
	if val != def {
		s.lines = append(s.lines, fmt.Sprintf("  %s: %s", key, yamlQuote(val)))
	}
}

func (s *yamlSection) addInt(key string, val, def int) {
	if val != def {
		s.lines = append(s.lines, fmt.Sprintf("  %s: %d", key, val))
	}
}

func (s *yamlSection) addBool(key string, val, def bool) {
	if val != def {
		s.lines = append(s.lines, fmt.Sprintf("  %s: %t", key, val))
	}
}

// renderYAML writes cfg as YAML, omitting values equal to the defaults.
func renderYAML(cfg *config.Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("INI config is invalid: %w", err)
	}
	d := config.DefaultConfig()

	aws := &yamlSection{name: "aws"}
	aws.lines = append(aws.lines, "  region: "+yamlQuote(cfg.AWS.Region))
	aws.addStr("profile", cfg.AWS.Profile, d.AWS.Profile)
	aws.addStr("endpoint", cfg.AWS.Endpoint, d.AWS.Endpoint)
	aws.addInt("timeout", cfg.AWS.Timeout, d.AWS.Timeout)

	target := &yamlSection{name: "target"}
	target.addStr("instance_id", cfg.Target.InstanceID, d.Target.InstanceID)

	scan := &yamlSection{name: "scan"}
	scan.addStr("document", cfg.Scan.Document, d.Scan.Document)
	scan.addStr("document_version", cfg.Scan.DocumentVersion, d.Scan.DocumentVersion)
	scan.addStr("operation", cfg.Scan.Operation, d.Scan.Operation)
	scan.addInt("timeout_seconds", cfg.Scan.TimeoutSeconds, d.Scan.TimeoutSeconds)
	scan.addInt("poll_delay", cfg.Scan.PollDelay, d.Scan.PollDelay)
	scan.addInt("max_attempts", cfg.Scan.MaxAttempts, d.Scan.MaxAttempts)

	compliance := &yamlSection{name: "compliance"}
	compliance.addStr("rule_name", cfg.Compliance.RuleName, d.Compliance.RuleName)
	compliance.addStr("resource_type", cfg.Compliance.ResourceType, d.Compliance.ResourceType)
	compliance.addInt("poll_interval", cfg.Compliance.PollInterval, d.Compliance.PollInterval)
	compliance.addInt("max_attempts", cfg.Compliance.MaxAttempts, d.Compliance.MaxAttempts)

	remediation := &yamlSection{name: "remediation"}
	remediation.addStr("document_prefix", cfg.Remediation.DocumentPrefix, d.Remediation.DocumentPrefix)
	remediation.addInt("locate_interval", cfg.Remediation.LocateInterval, d.Remediation.LocateInterval)
	remediation.addInt("locate_attempts", cfg.Remediation.LocateAttempts, d.Remediation.LocateAttempts)
	remediation.addInt("poll_interval", cfg.Remediation.PollInterval, d.Remediation.PollInterval)
	remediation.addInt("wait_time", cfg.Remediation.WaitTime, d.Remediation.WaitTime)

	telemetry := &yamlSection{name: "telemetry"}
	telemetry.addBool("enabled", cfg.Telemetry.Enabled, d.Telemetry.Enabled)
	telemetry.addStr("otlp_endpoint", cfg.Telemetry.OTLPEndpoint, d.Telemetry.OTLPEndpoint)

	var b strings.Builder
	b.WriteString("# Generated by pcc migrate-config\n")
	for _, s := range []*yamlSection{aws, target, scan, compliance, remediation, telemetry} {
		if len(s.lines) == 0 {
			continue
		}
		b.WriteString("\n" + s.name + ":\n")
		for _, l := range s.lines {
			b.WriteString(l + "\n")
		}
	}
	return []byte(b.String()), nil
}

// yamlQuote returns s as a YAML scalar, double-quoting it when a plain
// scalar would be misread.
func yamlQuote(s string) string {
	if s == "" {
		return `""`
	}
	if needsQuote(s) {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return s
}

func needsQuote(s string) bool {
	if strings.TrimSpace(s) != s {
		return true
	}
	if strings.ContainsAny(s, ":#\"'{}[],&*!|>%@`") {
		return true
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "?") {
		return true
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
