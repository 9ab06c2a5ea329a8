package remediation

import (
	"strings"
	"testing"
	"time"
)

func TestValidateInstanceID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"long EC2 ID", "i-0123456789abcdef0", false},
		{"short EC2 ID", "i-1a2b3c4d", false},
		{"hybrid ID", "mi-0123456789abcdef0", false},
		{"empty", "", true},
		{"uppercase hex", "i-0123456789ABCDEF0", true},
		{"wrong prefix", "x-0123456789abcdef0", true},
		{"wrong length", "i-0123456789", true},
		{"injection attempt", "i-1a2b3c4d;reboot", true},
		{"ARN", "arn:aws:ec2:us-east-1:123456789012:instance/i-1a2b3c4d", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInstanceID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInstanceID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRuleName(t *testing.T) {
	tests := []struct {
		name    string
		rule    string
		wantErr bool
	}{
		{"managed rule", "ec2-managedinstance-patch-compliance-status-check", false},
		{"underscores", "patch_rule_01", false},
		{"empty", "", true},
		{"spaces", "patch rule", false},
		{"punctuation", "patch.rule:prod", false},
		{"blank", "   ", true},
		{"multibyte at max length", strings.Repeat("é", 128), false},
		{"too long", strings.Repeat("a", 129), true},
		{"max length", strings.Repeat("a", 128), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleName(tt.rule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRuleName(%q) error = %v, wantErr %v", tt.rule, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOptions(t *testing.T) {
	valid := Options{InstanceID: testInstance, RuleName: "patch-rule", WaitTime: time.Minute}
	if err := ValidateOptions(valid); err != nil {
		t.Errorf("ValidateOptions(valid) = %v", err)
	}

	negative := valid
	negative.WaitTime = -time.Second
	if err := ValidateOptions(negative); err == nil {
		t.Error("expected error for negative wait time")
	}
}
