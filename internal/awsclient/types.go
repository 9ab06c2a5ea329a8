package awsclient

import (
	"slices"
	"strings"
	"time"
)

// Instance is a managed host as reported by the patch manager's inventory
type Instance struct {
	InstanceID   string
	PingStatus   string
	PlatformName string
	PlatformType string
	AgentVersion string
	ComputerName string
	LastPing     time.Time
}

// InstanceDetails is the compute-side view of a host
type InstanceDetails struct {
	InstanceID   string
	Name         string // value of the Name tag
	State        string
	InstanceType string
	Platform     string
}

// PatchState summarises the last patch operation on a host
type PatchState struct {
	InstanceID         string
	BaselineID         string
	PatchGroup         string
	MissingCount       int
	FailedCount        int
	InstalledCount     int
	InstalledOther     int
	NotApplicableCount int
	Operation          string // Scan or Install
	OperationStart     time.Time
	OperationEnd       time.Time
}

// ComplianceType is a compliance classification for a (rule, resource) pair
type ComplianceType string

const (
	ComplianceCompliant        ComplianceType = "COMPLIANT"
	ComplianceNonCompliant     ComplianceType = "NON_COMPLIANT"
	ComplianceNotApplicable    ComplianceType = "NOT_APPLICABLE"
	ComplianceInsufficientData ComplianceType = "INSUFFICIENT_DATA"
)

// ExecutionStatus is the lifecycle status of a remediation run
type ExecutionStatus string

const (
	StatusPending              ExecutionStatus = "Pending"
	StatusInProgress           ExecutionStatus = "InProgress"
	StatusWaiting              ExecutionStatus = "Waiting"
	StatusSuccess              ExecutionStatus = "Success"
	StatusFailed               ExecutionStatus = "Failed"
	StatusTimedOut             ExecutionStatus = "TimedOut"
	StatusCancelling           ExecutionStatus = "Cancelling"
	StatusCancelled            ExecutionStatus = "Cancelled"
	StatusCompletedWithSuccess ExecutionStatus = "CompletedWithSuccess"
	StatusCompletedWithFailure ExecutionStatus = "CompletedWithFailure"
	StatusRejected             ExecutionStatus = "Rejected"
	StatusExited               ExecutionStatus = "Exited"
)

// IsTerminal reports whether the run can no longer change status.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimedOut, StatusCancelled,
		StatusCompletedWithSuccess, StatusCompletedWithFailure, StatusRejected, StatusExited:
		return true
	}
	return false
}

// IsSuccess reports whether the run finished successfully.
func (s ExecutionStatus) IsSuccess() bool {
	return s == StatusSuccess || s == StatusCompletedWithSuccess
}

// Target is one declared target of a remediation run
type Target struct {
	Key    string
	Values []string
}

// Execution is a remediation run
type Execution struct {
	ExecutionID     string
	DocumentName    string
	Status          ExecutionStatus
	StartTime       time.Time
	Targets         []Target
	ResolvedTargets []string
	Target          string // free-form target description
}

// TargetsInstance reports whether the run's declared targets include instanceID.
func (e Execution) TargetsInstance(instanceID string) bool {
	if instanceID == "" {
		return false
	}
	for _, t := range e.Targets {
		if slices.Contains(t.Values, instanceID) {
			return true
		}
	}
	if slices.Contains(e.ResolvedTargets, instanceID) {
		return true
	}
	return slices.Contains(targetTokens(e.Target), instanceID)
}

// targetTokens splits a free-form target description into ID-shaped words.
func targetTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-'
	})
}

// Identity is the caller identity the SDK resolved credentials to
type Identity struct {
	Account string
	ARN     string
	UserID  string
}
