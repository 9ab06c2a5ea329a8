package remediation

import (
	"context"

	"github.com/kidoz/patch-compliance-check/internal/awsclient"
)

// Inventory answers whether a host is managed and what its patch state is.
// Absent records are reported as nil with a nil error.
type Inventory interface {
	DescribeInstance(ctx context.Context, instanceID string) (*awsclient.Instance, error)
	PatchState(ctx context.Context, instanceID string) (*awsclient.PatchState, error)
	InstanceDetails(ctx context.Context, instanceID string) (*awsclient.InstanceDetails, error)
}

// PatchOperator issues a patch scan and waits for it.
type PatchOperator interface {
	StartScan(ctx context.Context, instanceID string) (string, error)
	WaitForCommand(ctx context.Context, commandID, instanceID string) error
}

// ComplianceService triggers and reads rule evaluations.
type ComplianceService interface {
	StartEvaluation(ctx context.Context, ruleName string) error
	RuleCompliance(ctx context.Context, ruleName, resourceID string) (awsclient.ComplianceType, bool, error)
}

// AutomationService lists remediation runs and reads their status.
type AutomationService interface {
	ListExecutions(ctx context.Context, prefix string) ([]awsclient.Execution, error)
	ExecutionStatus(ctx context.Context, executionID string) (awsclient.ExecutionStatus, error)
}

// IdentityService reports the principal behind the credentials.
type IdentityService interface {
	CallerIdentity(ctx context.Context) (*awsclient.Identity, error)
}
