package remediation

import (
	"github.com/kidoz/patch-compliance-check/internal/awsclient"
	"github.com/kidoz/patch-compliance-check/internal/report"
)

// Summarize compares the before and after snapshots. Patches count as
// reduced only when both snapshots exist and the missing count dropped.
func Summarize(instanceID string, before, after *awsclient.PatchState, executionID string, status awsclient.ExecutionStatus) report.Summary {
	s := report.Summary{
		InstanceID:  instanceID,
		ExecutionID: executionID,
		Status:      string(status),
	}
	if before != nil && after != nil {
		s.HaveBoth = true
		s.InitialMissing = before.MissingCount
		s.FinalMissing = after.MissingCount
		s.PatchesReduced = after.MissingCount < before.MissingCount
	}
	return s
}
