package remediation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// EC2 instances use "i-", hybrid activations "mi-"; both carry 8 or 17 hex digits.
var instanceIDRe = regexp.MustCompile(`^(i|mi)-([0-9a-f]{8}|[0-9a-f]{17})$`)

// ValidateInstanceID validates a managed instance ID.
func ValidateInstanceID(id string) error {
	if id == "" {
		return fmt.Errorf("instance ID is empty")
	}
	if !instanceIDRe.MatchString(id) {
		return fmt.Errorf("invalid instance ID: %q", id)
	}
	return nil
}

// ValidateRuleName applies the service's own rule name constraint:
// 1 to 128 characters with at least one non-whitespace character.
func ValidateRuleName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("rule name is empty")
	}
	if n := utf8.RuneCountInString(name); n > 128 {
		return fmt.Errorf("rule name too long: %d chars", n)
	}
	return nil
}

// ValidateOptions checks the options of a check before any remote call.
func ValidateOptions(opts Options) error {
	if err := ValidateInstanceID(opts.InstanceID); err != nil {
		return err
	}
	if err := ValidateRuleName(opts.RuleName); err != nil {
		return err
	}
	if opts.WaitTime < 0 {
		return fmt.Errorf("wait time must not be negative, got %s", opts.WaitTime)
	}
	return nil
}
