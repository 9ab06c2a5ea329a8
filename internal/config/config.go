package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/ini.v1"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "PCC_"

// configSearchPaths lists config file paths to try, in priority order.
var configSearchPaths = []string{
	"pcc.yaml",
	"/etc/pcc/pcc.yaml",
	"/etc/pcc.yaml",
	"/etc/pcc.conf", // legacy INI
}

// FindConfigPath returns the first existing config file from the search paths.
// If none exist, it returns "" and Load falls back to defaults plus environment.
func FindConfigPath() string {
	for _, path := range configSearchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Config holds all configuration values for pcc
type Config struct {
	AWS         AWSConfig         `koanf:"aws"`
	Target      TargetConfig      `koanf:"target"`
	Scan        ScanConfig        `koanf:"scan"`
	Compliance  ComplianceConfig  `koanf:"compliance"`
	Remediation RemediationConfig `koanf:"remediation"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// AWSConfig holds connection settings shared by every service client
type AWSConfig struct {
	Region   string `koanf:"region"`
	Profile  string `koanf:"profile"`
	Endpoint string `koanf:"endpoint"` // custom endpoint, e.g. a local emulator
	Timeout  int    `koanf:"timeout"`  // per-request HTTP timeout, seconds
}

// TargetConfig identifies the managed host under test
type TargetConfig struct {
	InstanceID string `koanf:"instance_id"`
}

// ScanConfig controls the patch-scan command used to induce non-compliance
type ScanConfig struct {
	Document        string `koanf:"document"`
	DocumentVersion string `koanf:"document_version"`
	Operation       string `koanf:"operation"`
	TimeoutSeconds  int    `koanf:"timeout_seconds"`
	PollDelay       int    `koanf:"poll_delay"`
	MaxAttempts     int    `koanf:"max_attempts"`
}

// ComplianceConfig controls the compliance rule evaluation and polling
type ComplianceConfig struct {
	RuleName     string `koanf:"rule_name"`
	ResourceType string `koanf:"resource_type"`
	PollInterval int    `koanf:"poll_interval"`
	MaxAttempts  int    `koanf:"max_attempts"`
}

// RemediationConfig controls how the remediation run is located and awaited
type RemediationConfig struct {
	DocumentPrefix string `koanf:"document_prefix"`
	LocateInterval int    `koanf:"locate_interval"`
	LocateAttempts int    `koanf:"locate_attempts"`
	PollInterval   int    `koanf:"poll_interval"`
	WaitTime       int    `koanf:"wait_time"`
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region:  "us-east-1",
			Timeout: 30,
		},
		Scan: ScanConfig{
			Document:        "AWS-RunPatchBaseline",
			DocumentVersion: "$DEFAULT",
			Operation:       "Scan",
			TimeoutSeconds:  600,
			PollDelay:       5,
			MaxAttempts:     30,
		},
		Compliance: ComplianceConfig{
			RuleName:     "ec2-managedinstance-patch-compliance-status-check",
			ResourceType: "AWS::EC2::Instance",
			PollInterval: 60,
			MaxAttempts:  5,
		},
		Remediation: RemediationConfig{
			DocumentPrefix: "AWS-RunPatchBaseline",
			LocateInterval: 60,
			LocateAttempts: 5,
			PollInterval:   30,
			WaitTime:       300,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration from a file, auto-detecting format by extension.
// .yaml/.yml → YAML (Koanf), .conf/.ini or anything else → legacy INI.
// An empty path means "no file": defaults and environment only.
// Environment variables (PCC_ prefix) always override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return loadEnvOnly()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadINI(path)
	}
}

func loadEnvOnly() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

// loadYAML loads config from a YAML file with Koanf.
func loadYAML(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

// loadINI loads config from a flat INI file. Unknown keys are reported
// on stderr and skipped.
func loadINI(path string) (*Config, error) {
	m, warnings, err := readINI(path)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load INI values: %w", err)
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

// LoadINIWithWarnings reads an INI file without env overrides and returns
// warnings for unrecognized keys that were skipped during parsing.
func LoadINIWithWarnings(path string) (*Config, []string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file not found: %s", path)
	}

	m, warnings, err := readINI(path)
	if err != nil {
		return nil, nil, err
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, nil, err
	}

	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load INI values: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, warnings, nil
}

func readINI(path string) (map[string]interface{}, []string, error) {
	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse INI config file: %w", err)
	}
	m, warnings := iniToMap(iniFile)
	return m, warnings, nil
}

// iniKeyMap maps INI key names (lowercased, no separators) to koanf key paths.
var iniKeyMap = map[string]string{
	// [AWS]
	"region":   "aws.region",
	"profile":  "aws.profile",
	"endpoint": "aws.endpoint",
	"timeout":  "aws.timeout",
	// [TARGET]
	"instanceid": "target.instance_id",
	// [SCAN]
	"document":        "scan.document",
	"documentversion": "scan.document_version",
	"operation":       "scan.operation",
	"timeoutseconds":  "scan.timeout_seconds",
	"polldelay":       "scan.poll_delay",
	"scanmaxattempts": "scan.max_attempts",
	// [COMPLIANCE]
	"rulename":             "compliance.rule_name",
	"configrulename":       "compliance.rule_name",
	"resourcetype":         "compliance.resource_type",
	"compliancepollperiod": "compliance.poll_interval",
	"compliancemaxchecks":  "compliance.max_attempts",
	// [REMEDIATION]
	"documentprefix": "remediation.document_prefix",
	"locateinterval": "remediation.locate_interval",
	"locateattempts": "remediation.locate_attempts",
	"pollinterval":   "remediation.poll_interval",
	"waittime":       "remediation.wait_time",
	// [TELEMETRY]
	"telemetryenabled": "telemetry.enabled",
	"otlpendpoint":     "telemetry.otlp_endpoint",
}

// iniToMap maps INI section/key names to the nested koanf key namespace.
// Key matching ignores case, '-' and '_'.
func iniToMap(f *ini.File) (map[string]interface{}, []string) {
	m := make(map[string]interface{})
	var warnings []string

	for _, section := range f.Sections() {
		for _, key := range section.Keys() {
			normalised := normaliseINIKey(key.Name())
			if koanfKey, ok := iniKeyMap[normalised]; ok {
				m[koanfKey] = key.Value()
			} else if section.Name() != ini.DefaultSection {
				warnings = append(warnings, fmt.Sprintf("unrecognized INI key [%s] %s (skipped)", section.Name(), key.Name()))
			}
		}
	}

	return m, warnings
}

func normaliseINIKey(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

// --- helpers ---

func loadDefaults(k *koanf.Koanf) error {
	d := DefaultConfig()
	return k.Load(confmap.Provider(map[string]interface{}{
		"aws.region":                  d.AWS.Region,
		"aws.timeout":                 d.AWS.Timeout,
		"scan.document":               d.Scan.Document,
		"scan.document_version":       d.Scan.DocumentVersion,
		"scan.operation":              d.Scan.Operation,
		"scan.timeout_seconds":        d.Scan.TimeoutSeconds,
		"scan.poll_delay":             d.Scan.PollDelay,
		"scan.max_attempts":           d.Scan.MaxAttempts,
		"compliance.rule_name":        d.Compliance.RuleName,
		"compliance.resource_type":    d.Compliance.ResourceType,
		"compliance.poll_interval":    d.Compliance.PollInterval,
		"compliance.max_attempts":     d.Compliance.MaxAttempts,
		"remediation.document_prefix": d.Remediation.DocumentPrefix,
		"remediation.locate_interval": d.Remediation.LocateInterval,
		"remediation.locate_attempts": d.Remediation.LocateAttempts,
		"remediation.poll_interval":   d.Remediation.PollInterval,
		"remediation.wait_time":       d.Remediation.WaitTime,
		"telemetry.enabled":           d.Telemetry.Enabled,
	}, "."), nil)
}

func loadEnvOverrides(k *koanf.Koanf) error {
	// PCC_COMPLIANCE_RULE_NAME → compliance.rule_name
	return k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		if idx := strings.Index(s, "_"); idx >= 0 {
			return s[:idx] + "." + s[idx+1:]
		}
		return s
	}), nil)
}

func unmarshalAndValidate(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required fields are set and values are in range.
// It does NOT require target.instance_id; commands that act on a host
// call ValidateTarget after flags have been applied.
func (c *Config) Validate() error {
	var errs []error

	if c.AWS.Region == "" {
		errs = append(errs, fmt.Errorf("aws.region is required"))
	}
	if c.AWS.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("aws.timeout must be greater than 0, got %d", c.AWS.Timeout))
	}
	if c.AWS.Endpoint != "" {
		u, err := url.Parse(c.AWS.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("aws.endpoint must be a valid URL with scheme and host"))
		}
	}

	if c.Scan.Document == "" {
		errs = append(errs, fmt.Errorf("scan.document is required"))
	}
	if c.Scan.TimeoutSeconds < 30 || c.Scan.TimeoutSeconds > 2592000 {
		errs = append(errs, fmt.Errorf("scan.timeout_seconds must be between 30 and 2592000, got %d", c.Scan.TimeoutSeconds))
	}
	if c.Scan.PollDelay <= 0 {
		errs = append(errs, fmt.Errorf("scan.poll_delay must be greater than 0, got %d", c.Scan.PollDelay))
	}
	if c.Scan.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("scan.max_attempts must be greater than 0, got %d", c.Scan.MaxAttempts))
	}

	if c.Compliance.RuleName == "" {
		errs = append(errs, fmt.Errorf("compliance.rule_name is required"))
	}
	if c.Compliance.ResourceType == "" {
		errs = append(errs, fmt.Errorf("compliance.resource_type is required"))
	}
	if c.Compliance.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("compliance.poll_interval must be greater than 0, got %d", c.Compliance.PollInterval))
	}
	if c.Compliance.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("compliance.max_attempts must be greater than 0, got %d", c.Compliance.MaxAttempts))
	}

	if c.Remediation.DocumentPrefix == "" {
		errs = append(errs, fmt.Errorf("remediation.document_prefix is required"))
	}
	if c.Remediation.LocateInterval <= 0 {
		errs = append(errs, fmt.Errorf("remediation.locate_interval must be greater than 0, got %d", c.Remediation.LocateInterval))
	}
	if c.Remediation.LocateAttempts <= 0 {
		errs = append(errs, fmt.Errorf("remediation.locate_attempts must be greater than 0, got %d", c.Remediation.LocateAttempts))
	}
	if c.Remediation.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("remediation.poll_interval must be greater than 0, got %d", c.Remediation.PollInterval))
	}
	if c.Remediation.WaitTime <= 0 {
		errs = append(errs, fmt.Errorf("remediation.wait_time must be greater than 0, got %d", c.Remediation.WaitTime))
	}

	return errors.Join(errs...)
}

// ValidateTarget checks that the target instance ID is set.
// Call this in commands that act on a host (run, inspect).
func (c *Config) ValidateTarget() error {
	if c.Target.InstanceID == "" {
		return fmt.Errorf("target.instance_id is required (use --instance-id, the config file or %sTARGET_INSTANCE_ID)", EnvPrefix)
	}
	return nil
}
