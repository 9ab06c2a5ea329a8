package remediation

import (
	"time"

	"github.com/kidoz/patch-compliance-check/internal/awsclient"
	"github.com/kidoz/patch-compliance-check/internal/report"
)

// Options configures a check
type Options struct {
	InstanceID string        // Managed host under test
	RuleName   string        // Compliance rule to re-evaluate
	WaitTime   time.Duration // Maximum wait for the remediation run to finish
}

// ComplianceResult is the outcome of polling the compliance rule
type ComplianceResult struct {
	Compliance awsclient.ComplianceType // last observed type, empty if none
	Found      bool                     // at least one evaluation was seen
	Confirmed  bool                     // NON_COMPLIANT was observed
	Attempts   int
}

// Results contains everything observed during a check
type Results struct {
	Identity   *awsclient.Identity
	Instance   *awsclient.Instance
	Details    *awsclient.InstanceDetails
	Before     *awsclient.PatchState
	After      *awsclient.PatchState
	Compliance ComplianceResult

	ExecutionID     string
	ExecutionStatus awsclient.ExecutionStatus

	Summary report.Summary
}
