package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kidoz/patch-compliance-check/internal/config"
)

func TestYamlQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"contains colon", "http://localhost", `"http://localhost"`},
		{"resource type", "AWS::EC2::Instance", `"AWS::EC2::Instance"`},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"double quote escaping", `say "hi"`, `"say \"hi\""`},
		{"no special chars", `path\to`, `path\to`},
		{"contains hash", "value#comment", `"value#comment"`},
		{"document version", "$DEFAULT", "$DEFAULT"},
		{"boolean-like", "yes", `"yes"`},
		{"number-like", "42", `"42"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := yamlQuote(tt.input)
			if got != tt.want {
				t.Errorf("yamlQuote(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderYAML_OmitsDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target.InstanceID = "i-0123456789abcdef0"

	t.Run("non-default wait_time is written", func(t *testing.T) {
		cfg.Remediation.WaitTime = 900
		out, err := renderYAML(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(out), "wait_time: 900") {
			t.Errorf("expected wait_time: 900 in output, got:\n%s", string(out))
		}
	})

	t.Run("default wait_time is omitted", func(t *testing.T) {
		cfg.Remediation.WaitTime = 300 // default
		out, err := renderYAML(cfg)
		if err != nil {
			t.Fatal(err)
		}
		s := string(out)
		if strings.Contains(s, "wait_time") || strings.Contains(s, "remediation:") {
			t.Errorf("expected remediation section to be omitted, got:\n%s", s)
		}
		if !strings.Contains(s, "region: us-east-1") || !strings.Contains(s, "instance_id: i-0123456789abcdef0") {
			t.Errorf("expected region and instance_id, got:\n%s", s)
		}
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		bad := config.DefaultConfig()
		bad.Compliance.MaxAttempts = 0
		if _, err := renderYAML(bad); err == nil {
			t.Error("expected error for invalid config")
		}
	})
}

func TestRenderYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "pcc.conf")
	iniData := `[AWS]
Region = eu-west-1
Profile = patching

[TARGET]
InstanceId = i-0123456789abcdef0

[REMEDIATION]
WaitTime = 600
`
	if err := os.WriteFile(iniPath, []byte(iniData), 0o600); err != nil {
		t.Fatal(err)
	}

	fromINI, warnings, err := config.LoadINIWithWarnings(iniPath)
	if err != nil {
		t.Fatalf("LoadINIWithWarnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	out, err := renderYAML(fromINI)
	if err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "pcc.yaml")
	if err := os.WriteFile(yamlPath, out, 0o600); err != nil {
		t.Fatal(err)
	}

	fromYAML, err := config.Load(yamlPath)
	if err != nil {
		t.Fatalf("Load(yaml): %v\n%s", err, out)
	}
	if fromYAML.AWS.Region != "eu-west-1" || fromYAML.AWS.Profile != "patching" {
		t.Errorf("aws = %+v", fromYAML.AWS)
	}
	if fromYAML.Target.InstanceID != "i-0123456789abcdef0" {
		t.Errorf("instance_id = %q", fromYAML.Target.InstanceID)
	}
	if fromYAML.Remediation.WaitTime != 600 || fromYAML.Compliance.PollInterval != 60 {
		t.Errorf("remediation/compliance = %+v / %+v", fromYAML.Remediation, fromYAML.Compliance)
	}
}
