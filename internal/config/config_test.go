package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("Region = %q, want us-east-1", cfg.AWS.Region)
	}
	if cfg.Scan.Document != "AWS-RunPatchBaseline" {
		t.Errorf("Document = %q, want AWS-RunPatchBaseline", cfg.Scan.Document)
	}
	if cfg.Scan.DocumentVersion != "$DEFAULT" {
		t.Errorf("DocumentVersion = %q, want $DEFAULT", cfg.Scan.DocumentVersion)
	}
	if cfg.Scan.PollDelay != 5 || cfg.Scan.MaxAttempts != 30 {
		t.Errorf("scan waiter = %ds x %d, want 5s x 30", cfg.Scan.PollDelay, cfg.Scan.MaxAttempts)
	}
	if cfg.Compliance.RuleName != "ec2-managedinstance-patch-compliance-status-check" {
		t.Errorf("RuleName = %q", cfg.Compliance.RuleName)
	}
	if cfg.Compliance.PollInterval != 60 || cfg.Compliance.MaxAttempts != 5 {
		t.Errorf("compliance poll = %ds x %d, want 60s x 5", cfg.Compliance.PollInterval, cfg.Compliance.MaxAttempts)
	}
	if cfg.Remediation.WaitTime != 300 {
		t.Errorf("WaitTime = %d, want 300", cfg.Remediation.WaitTime)
	}
	if cfg.Remediation.PollInterval != 30 {
		t.Errorf("PollInterval = %d, want 30", cfg.Remediation.PollInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing region", func(c *Config) { c.AWS.Region = "" }, "aws.region"},
		{"bad timeout", func(c *Config) { c.AWS.Timeout = 0 }, "aws.timeout"},
		{"bad endpoint", func(c *Config) { c.AWS.Endpoint = "not-a-url" }, "aws.endpoint"},
		{"missing document", func(c *Config) { c.Scan.Document = "" }, "scan.document"},
		{"scan timeout too low", func(c *Config) { c.Scan.TimeoutSeconds = 5 }, "scan.timeout_seconds"},
		{"bad poll delay", func(c *Config) { c.Scan.PollDelay = -1 }, "scan.poll_delay"},
		{"bad scan attempts", func(c *Config) { c.Scan.MaxAttempts = 0 }, "scan.max_attempts"},
		{"missing rule", func(c *Config) { c.Compliance.RuleName = "" }, "compliance.rule_name"},
		{"missing resource type", func(c *Config) { c.Compliance.ResourceType = "" }, "compliance.resource_type"},
		{"bad compliance interval", func(c *Config) { c.Compliance.PollInterval = 0 }, "compliance.poll_interval"},
		{"bad compliance attempts", func(c *Config) { c.Compliance.MaxAttempts = 0 }, "compliance.max_attempts"},
		{"missing prefix", func(c *Config) { c.Remediation.DocumentPrefix = "" }, "remediation.document_prefix"},
		{"bad locate interval", func(c *Config) { c.Remediation.LocateInterval = 0 }, "remediation.locate_interval"},
		{"bad locate attempts", func(c *Config) { c.Remediation.LocateAttempts = 0 }, "remediation.locate_attempts"},
		{"bad poll interval", func(c *Config) { c.Remediation.PollInterval = 0 }, "remediation.poll_interval"},
		{"bad wait time", func(c *Config) { c.Remediation.WaitTime = -5 }, "remediation.wait_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %s error, got: %v", tt.want, err)
			}
		})
	}

	t.Run("multiple errors at once", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AWS.Region = ""
		cfg.Remediation.WaitTime = 0
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "aws.region") || !strings.Contains(err.Error(), "wait_time") {
			t.Errorf("expected both errors in combined output, got: %v", err)
		}
	})
}

func TestValidateTarget(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ValidateTarget()
	if err == nil || !strings.Contains(err.Error(), "target.instance_id") {
		t.Errorf("expected target.instance_id error, got: %v", err)
	}

	cfg.Target.InstanceID = "i-0123456789abcdef0"
	if err := cfg.ValidateTarget(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("Region = %q, want default", cfg.AWS.Region)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pcc.yaml")

	content := `
aws:
  region: eu-west-1
  profile: qa
target:
  instance_id: i-0abc
compliance:
  rule_name: custom-patch-rule
  max_attempts: 3
remediation:
  wait_time: 900
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.AWS.Region != "eu-west-1" {
		t.Errorf("Region = %q, want eu-west-1", cfg.AWS.Region)
	}
	if cfg.AWS.Profile != "qa" {
		t.Errorf("Profile = %q, want qa", cfg.AWS.Profile)
	}
	if cfg.Target.InstanceID != "i-0abc" {
		t.Errorf("InstanceID = %q, want i-0abc", cfg.Target.InstanceID)
	}
	if cfg.Compliance.RuleName != "custom-patch-rule" {
		t.Errorf("RuleName = %q", cfg.Compliance.RuleName)
	}
	if cfg.Compliance.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Compliance.MaxAttempts)
	}
	if cfg.Remediation.WaitTime != 900 {
		t.Errorf("WaitTime = %d, want 900", cfg.Remediation.WaitTime)
	}
	// untouched keys keep defaults
	if cfg.Compliance.PollInterval != 60 {
		t.Errorf("PollInterval = %d, want 60 (default)", cfg.Compliance.PollInterval)
	}
}

func TestLoadYAML_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pcc.yaml")

	content := `
remediation:
  wait_time: 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "wait_time") {
		t.Errorf("expected wait_time validation error, got: %v", err)
	}
}

func TestLoadINI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pcc.conf")

	content := `[AWS]
Region = ap-southeast-2

[TARGET]
InstanceId = i-0def

[COMPLIANCE]
RuleName = my-rule

[REMEDIATION]
WaitTime = 120
Document_Prefix = AWS-PatchInstanceWithRollback
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.AWS.Region != "ap-southeast-2" {
		t.Errorf("Region = %q", cfg.AWS.Region)
	}
	if cfg.Target.InstanceID != "i-0def" {
		t.Errorf("InstanceID = %q", cfg.Target.InstanceID)
	}
	if cfg.Compliance.RuleName != "my-rule" {
		t.Errorf("RuleName = %q", cfg.Compliance.RuleName)
	}
	if cfg.Remediation.WaitTime != 120 {
		t.Errorf("WaitTime = %d, want 120", cfg.Remediation.WaitTime)
	}
	if cfg.Remediation.DocumentPrefix != "AWS-PatchInstanceWithRollback" {
		t.Errorf("DocumentPrefix = %q", cfg.Remediation.DocumentPrefix)
	}
}

func TestINIToMap_UnrecognizedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pcc.conf")

	content := `[AWS]
Region = us-west-2
UnknownKey = some_value

[REMEDIATION]
AnotherBadKey = 123
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, warnings, err := LoadINIWithWarnings(path)
	if err != nil {
		t.Fatalf("LoadINIWithWarnings() error: %v", err)
	}

	if cfg.AWS.Region != "us-west-2" {
		t.Errorf("Region = %q, want us-west-2", cfg.AWS.Region)
	}

	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "[AWS] UnknownKey") {
		t.Errorf("warning[0] = %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "[REMEDIATION] AnotherBadKey") {
		t.Errorf("warning[1] = %q", warnings[1])
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PCC_AWS_REGION", "eu-central-1")
	t.Setenv("PCC_TARGET_INSTANCE_ID", "i-0env")
	t.Setenv("PCC_REMEDIATION_WAIT_TIME", "45")

	dir := t.TempDir()
	path := filepath.Join(dir, "pcc.yaml")
	content := `
aws:
  region: us-west-1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AWS.Region != "eu-central-1" {
		t.Errorf("Region = %q, env should win over file", cfg.AWS.Region)
	}
	if cfg.Target.InstanceID != "i-0env" {
		t.Errorf("InstanceID = %q", cfg.Target.InstanceID)
	}
	if cfg.Remediation.WaitTime != 45 {
		t.Errorf("WaitTime = %d, want 45", cfg.Remediation.WaitTime)
	}
}
