package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/awsclient"
	"github.com/kidoz/patch-compliance-check/internal/config"
	"github.com/kidoz/patch-compliance-check/internal/poll"
	"github.com/kidoz/patch-compliance-check/internal/report"
	"github.com/kidoz/patch-compliance-check/internal/telemetry"
)

// Fatal preconditions of a check.
var (
	ErrNotManaged       = errors.New("instance is not managed by SSM")
	ErrScanFailed       = errors.New("failed to create non-compliant state")
	ErrEvaluationFailed = errors.New("failed to force compliance rule evaluation")
)

// Tester drives a remediation check against one managed host
type Tester struct {
	cfg        *config.Config
	log        *zap.Logger
	out        *report.Reporter
	inventory  Inventory
	patches    PatchOperator
	compliance ComplianceService
	automation AutomationService
	identity   IdentityService // optional
	timer      backoff.Timer   // nil uses real time
}

// New creates a Tester. identity may be nil.
func New(
	cfg *config.Config,
	log *zap.Logger,
	out *report.Reporter,
	inventory Inventory,
	patches PatchOperator,
	compliance ComplianceService,
	automation AutomationService,
	identity IdentityService,
) *Tester {
	return &Tester{
		cfg:        cfg,
		log:        log,
		out:        out,
		inventory:  inventory,
		patches:    patches,
		compliance: compliance,
		automation: automation,
		identity:   identity,
	}
}

// SetTimer replaces the timer used by every polling loop.
func (t *Tester) SetTimer(timer backoff.Timer) {
	t.timer = timer
}

// Run executes the full check: membership, before snapshot, scan, rule
// evaluation, compliance polling, remediation run lookup and wait, after
// snapshot and summary. Only the membership, scan and evaluation steps are
// fatal; every other gap is reported and the check continues.
func (t *Tester) Run(ctx context.Context, opts Options) (res *Results, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.Run")
	defer func() { telemetry.EndSpan(span, err) }()

	if err = ValidateOptions(opts); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("instance.id", opts.InstanceID),
		attribute.String("compliance.rule", opts.RuleName),
	)

	waitTime := opts.WaitTime
	if waitTime == 0 {
		waitTime = seconds(t.cfg.Remediation.WaitTime)
	}

	res = &Results{}
	res.Identity = t.banner(ctx, "AUTOMATED PATCHING TEST SCRIPT", opts)

	if res.Instance = t.describeManaged(ctx, opts.InstanceID); res.Instance == nil {
		t.out.Failuref("Cannot proceed - instance is not managed by SSM")
		err = ErrNotManaged
		return res, err
	}
	res.Details = t.describeDetails(ctx, opts.InstanceID)

	t.out.Section("INITIAL PATCH STATE")
	if res.Before = t.SnapshotPatchState(ctx, opts.InstanceID); res.Before == nil {
		t.out.Warnf("Warning: Could not get initial patch state, but proceeding anyway")
	}

	t.out.Section("CREATING NON-COMPLIANT STATE")
	if !t.InduceNonCompliance(ctx, opts.InstanceID) {
		t.out.Failuref("Failed to create non-compliant state")
		err = ErrScanFailed
		return res, err
	}

	t.out.Section("FORCING CONFIG EVALUATION")
	if !t.TriggerEvaluation(ctx, opts.RuleName) {
		t.out.Failuref("Failed to force AWS Config evaluation")
		err = ErrEvaluationFailed
		return res, err
	}

	t.out.Section("WAITING FOR NON-COMPLIANCE DETECTION")
	t.out.Infof("This might take a few minutes...")
	res.Compliance = t.AwaitNonCompliance(ctx, opts.RuleName, opts.InstanceID)
	if err = t.interrupted(ctx); err != nil {
		return res, err
	}

	t.out.Section("CHECKING FOR AUTOMATION EXECUTION")
	if execID, found := t.LocateExecution(ctx, opts.InstanceID); found {
		res.ExecutionID = execID
		t.out.Section("MONITORING AUTOMATION EXECUTION")
		res.ExecutionStatus = t.AwaitExecution(ctx, execID, waitTime)
	} else {
		t.out.Warnf("No automation execution was detected within the timeout period")
	}
	if err = t.interrupted(ctx); err != nil {
		return res, err
	}

	t.out.Section("FINAL PATCH STATE")
	res.After = t.SnapshotPatchState(ctx, opts.InstanceID)

	res.Summary = Summarize(opts.InstanceID, res.Before, res.After, res.ExecutionID, res.ExecutionStatus)
	t.out.Summary(res.Summary)

	t.log.Debug("Check finished",
		zap.String("instance", opts.InstanceID),
		zap.Bool("non_compliance_confirmed", res.Compliance.Confirmed),
		zap.String("execution_id", res.ExecutionID),
		zap.String("execution_status", string(res.ExecutionStatus)),
		zap.Bool("patches_reduced", res.Summary.PatchesReduced),
	)
	return res, nil
}

// Inspect reports the current state of the host without changing anything:
// membership, instance details, patch state, one compliance check and the
// most recent remediation run that targets the host.
func (t *Tester) Inspect(ctx context.Context, opts Options) (res *Results, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.Inspect")
	defer func() { telemetry.EndSpan(span, err) }()

	if err = ValidateOptions(opts); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("instance.id", opts.InstanceID))

	res = &Results{}
	res.Identity = t.banner(ctx, "PATCH COMPLIANCE INSPECTION", opts)

	if res.Instance = t.describeManaged(ctx, opts.InstanceID); res.Instance == nil {
		err = ErrNotManaged
		return res, err
	}
	res.Details = t.describeDetails(ctx, opts.InstanceID)

	t.out.Section("PATCH STATE")
	res.Before = t.SnapshotPatchState(ctx, opts.InstanceID)

	t.out.Section("COMPLIANCE STATUS")
	ct, found, cerr := t.checkCompliance(ctx, opts.RuleName, opts.InstanceID)
	res.Compliance = ComplianceResult{
		Compliance: ct,
		Found:      found,
		Confirmed:  found && ct == awsclient.ComplianceNonCompliant,
		Attempts:   1,
	}
	if cerr != nil {
		res.Compliance.Attempts = 0
	}

	t.out.Section("RECENT AUTOMATION EXECUTION")
	if exec, ok, _ := t.findExecution(ctx, opts.InstanceID); ok {
		res.ExecutionID = exec.ExecutionID
		res.ExecutionStatus = exec.Status
	}
	return res, nil
}

// CheckManaged reports whether the host is registered with Systems Manager.
// Lookup errors are printed and count as unmanaged.
func (t *Tester) CheckManaged(ctx context.Context, instanceID string) bool {
	return t.describeManaged(ctx, instanceID) != nil
}

func (t *Tester) describeManaged(ctx context.Context, instanceID string) *awsclient.Instance {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.CheckManaged")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	t.out.Infof("Checking if instance %s is managed by SSM...", instanceID)
	inst, err := t.inventory.DescribeInstance(ctx, instanceID)
	if err != nil {
		t.out.Failuref("Error checking instance management status: %s", awsclient.DescribeError(err))
		return nil
	}
	if inst == nil {
		t.out.Failuref("Instance %s is NOT managed by SSM", instanceID)
		return nil
	}

	span.SetAttributes(attribute.String("ssm.ping_status", inst.PingStatus))
	t.out.Successf("Instance %s is managed by SSM", instanceID)
	t.out.Detailf("Ping status: %s, platform: %s (%s), agent: %s",
		inst.PingStatus, inst.PlatformName, inst.PlatformType, inst.AgentVersion)
	return inst
}

func (t *Tester) describeDetails(ctx context.Context, instanceID string) *awsclient.InstanceDetails {
	// Hybrid activations are unknown to EC2.
	if strings.HasPrefix(instanceID, "mi-") {
		return nil
	}
	d, err := t.inventory.InstanceDetails(ctx, instanceID)
	if err != nil {
		t.out.Warnf("Could not get instance details: %s", awsclient.DescribeError(err))
		return nil
	}
	if d == nil {
		return nil
	}
	name := d.Name
	if name == "" {
		name = "-"
	}
	t.out.Detailf("Name: %s, state: %s, type: %s, platform: %s", name, d.State, d.InstanceType, d.Platform)
	return d
}

// SnapshotPatchState prints and returns the host's patch counts, or nil
// when none are recorded or the lookup failed.
func (t *Tester) SnapshotPatchState(ctx context.Context, instanceID string) *awsclient.PatchState {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.SnapshotPatchState")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	t.out.Infof("Checking patch state for instance %s...", instanceID)
	state, err := t.inventory.PatchState(ctx, instanceID)
	if err != nil {
		t.out.Failuref("Error checking patch state: %s", awsclient.DescribeError(err))
		return nil
	}
	if state == nil {
		t.out.Unknownf("No patch state information found")
		return nil
	}

	span.SetAttributes(attribute.Int("patch.missing", state.MissingCount))
	t.out.Infof("Missing Patches: %d", state.MissingCount)
	t.out.Infof("Failed Patches: %d", state.FailedCount)
	t.out.Infof("Installed Patches: %d", state.InstalledCount)
	t.out.Infof("Last Operation: %s", state.Operation)
	t.out.Infof("Last Operation Time: %s", formatTime(state.OperationEnd))
	return state
}

// InduceNonCompliance runs a patch scan on the host and waits for it.
func (t *Tester) InduceNonCompliance(ctx context.Context, instanceID string) bool {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.InduceNonCompliance")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	t.out.Infof("Creating non-compliant state by scanning for patches on %s...", instanceID)
	commandID, err := t.patches.StartScan(ctx, instanceID)
	if err != nil {
		t.out.Failuref("Error creating non-compliant state: %s", awsclient.DescribeError(err))
		return false
	}
	span.SetAttributes(attribute.String("ssm.command_id", commandID))
	t.out.Infof("Scan command initiated with ID: %s", commandID)

	t.out.Infof("Waiting for scan to complete...")
	if err = t.patches.WaitForCommand(ctx, commandID, instanceID); err != nil {
		t.out.Failuref("Error waiting for patch scan %s: %s", commandID, awsclient.DescribeError(err))
		return false
	}
	t.out.Successf("Patch scan completed")
	return true
}

// TriggerEvaluation asks the compliance engine to re-evaluate ruleName.
func (t *Tester) TriggerEvaluation(ctx context.Context, ruleName string) bool {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.TriggerEvaluation")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	t.out.Infof("Forcing evaluation of AWS Config rule: %s...", ruleName)
	if err = t.compliance.StartEvaluation(ctx, ruleName); err != nil {
		t.out.Failuref("Error starting config evaluation: %s", awsclient.DescribeError(err))
		return false
	}
	t.out.Successf("Evaluation started for rule %s", ruleName)
	return true
}

// AwaitNonCompliance polls the rule until the host is reported NON_COMPLIANT.
// Each check is preceded by one poll interval. Failed checks are printed and
// retried; the result is never an error.
func (t *Tester) AwaitNonCompliance(ctx context.Context, ruleName, instanceID string) ComplianceResult {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.AwaitNonCompliance")
	defer span.End()

	policy := poll.Policy{
		Interval:    seconds(t.cfg.Compliance.PollInterval),
		MaxAttempts: t.cfg.Compliance.MaxAttempts,
		LeadingWait: true,
		Timer:       t.timer,
	}

	var res ComplianceResult
	attempts, err := policy.Run(ctx, func(ctx context.Context, attempt int) (bool, error) {
		t.out.Infof("Compliance check attempt %d/%d...", attempt, policy.MaxAttempts)
		ct, found, err := t.checkCompliance(ctx, ruleName, instanceID)
		if err != nil {
			return false, err
		}
		res.Compliance = ""
		if found {
			res.Found = true
			res.Compliance = ct
		}
		return found && ct == awsclient.ComplianceNonCompliant, nil
	}, nil)

	res.Attempts = attempts
	res.Confirmed = err == nil
	span.SetAttributes(
		attribute.Int("poll.attempts", attempts),
		attribute.Bool("compliance.confirmed", res.Confirmed),
	)

	if !res.Confirmed {
		t.log.Debug("Non-compliance not observed", zap.Int("attempts", attempts), zap.Error(err))
		t.out.Warnf("Warning: Instance still showing as compliant after multiple checks")
		t.out.Detailf("You might need to wait longer or check Config settings")
	}
	return res
}

func (t *Tester) checkCompliance(ctx context.Context, ruleName, instanceID string) (awsclient.ComplianceType, bool, error) {
	t.out.Infof("Checking compliance status of %s for rule %s...", instanceID, ruleName)
	ct, found, err := t.compliance.RuleCompliance(ctx, ruleName, instanceID)
	if err != nil {
		t.out.Failuref("Error checking compliance status: %s", awsclient.DescribeError(err))
		return "", false, err
	}
	if !found {
		t.out.Unknownf("No compliance result found for this rule and instance")
		return "", false, nil
	}
	t.out.Successf("Compliance status: %s", ct)
	return ct, true, nil
}

// LocateExecution looks for a remediation run whose declared targets include
// the host. Listing failures are printed and retried.
func (t *Tester) LocateExecution(ctx context.Context, instanceID string) (string, bool) {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.LocateExecution")
	defer span.End()

	policy := poll.Policy{
		Interval:    seconds(t.cfg.Remediation.LocateInterval),
		MaxAttempts: t.cfg.Remediation.LocateAttempts,
		Timer:       t.timer,
	}

	t.out.Infof("Waiting for automation to start...")
	var found awsclient.Execution
	_, err := policy.Run(ctx, func(ctx context.Context, _ int) (bool, error) {
		exec, ok, err := t.findExecution(ctx, instanceID)
		if err != nil {
			return false, err
		}
		if ok {
			found = exec
		}
		return ok, nil
	}, func(attempt int, _ error, next time.Duration) {
		t.out.Infof("No automation found yet, checking again in %d seconds (attempt %d/%d)...",
			int(next.Seconds()), attempt, policy.MaxAttempts)
	})
	if err != nil {
		t.log.Debug("Remediation run not found", zap.String("instance", instanceID), zap.Error(err))
		return "", false
	}

	span.SetAttributes(attribute.String("ssm.execution_id", found.ExecutionID))
	return found.ExecutionID, true
}

func (t *Tester) findExecution(ctx context.Context, instanceID string) (awsclient.Execution, bool, error) {
	t.out.Infof("Checking for automation executions for instance %s...", instanceID)
	runs, err := t.automation.ListExecutions(ctx, t.cfg.Remediation.DocumentPrefix)
	if err != nil {
		t.out.Failuref("Error checking automation executions: %s", awsclient.DescribeError(err))
		return awsclient.Execution{}, false, err
	}

	for _, run := range runs {
		if !run.TargetsInstance(instanceID) {
			continue
		}
		t.out.Successf("Found automation execution: %s", run.ExecutionID)
		t.out.Detailf("Status: %s", run.Status)
		t.out.Detailf("Started: %s", formatTime(run.StartTime))
		return run, true, nil
	}

	t.out.Unknownf("No automation execution found for this instance")
	return awsclient.Execution{}, false, nil
}

// AwaitExecution polls the run's status until it is terminal or maxWait has
// elapsed, and returns the last status observed (possibly non-terminal or
// empty). Failed polls are printed and retried.
func (t *Tester) AwaitExecution(ctx context.Context, executionID string, maxWait time.Duration) awsclient.ExecutionStatus {
	ctx, span := telemetry.Tracer().Start(ctx, "Tester.AwaitExecution")
	defer span.End()

	interval := seconds(t.cfg.Remediation.PollInterval)
	attempts := 1
	if maxWait > 0 && interval > 0 {
		attempts = int((maxWait + interval - 1) / interval)
	}
	if maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	policy := poll.Policy{Interval: interval, MaxAttempts: attempts, Timer: t.timer}

	t.out.Infof("Waiting for automation execution %s to complete...", executionID)
	var status awsclient.ExecutionStatus
	polls, err := policy.Run(ctx, func(ctx context.Context, _ int) (bool, error) {
		s, err := t.automation.ExecutionStatus(ctx, executionID)
		if err != nil {
			t.out.Failuref("Error checking automation status: %s", awsclient.DescribeError(err))
			return false, err
		}
		status = s
		t.out.Infof("Current status: %s", s)
		return s.IsTerminal(), nil
	}, nil)

	span.SetAttributes(
		attribute.Int("poll.attempts", polls),
		attribute.String("ssm.execution_status", string(status)),
	)
	if err != nil {
		t.log.Debug("Stopped waiting for remediation run",
			zap.String("execution_id", executionID),
			zap.Int("polls", polls),
			zap.Error(err),
		)
	}

	if status.IsSuccess() {
		t.out.Successf("Automation completed successfully")
	} else {
		t.out.Warnf("Automation ended with status: %s", statusOrUnknown(status))
	}
	return status
}

func (t *Tester) banner(ctx context.Context, title string, opts Options) *awsclient.Identity {
	var (
		ident *awsclient.Identity
		err   error
	)
	if t.identity != nil {
		ident, err = t.identity.CallerIdentity(ctx)
	}

	fields := []report.Field{
		report.F("Testing instance", opts.InstanceID),
		report.F("AWS Region", t.cfg.AWS.Region),
		report.F("Config Rule", opts.RuleName),
	}
	if ident != nil {
		fields = append(fields, report.F("AWS Account", ident.Account), report.F("Caller", ident.ARN))
	}
	t.out.Banner(title, fields...)

	if err != nil {
		t.out.Warnf("Could not resolve caller identity: %s", awsclient.DescribeError(err))
	}
	return ident
}

func (t *Tester) interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		t.out.Warnf("Check interrupted: %s", err)
		return fmt.Errorf("check interrupted: %w", err)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Format(time.RFC3339)
}

func statusOrUnknown(s awsclient.ExecutionStatus) string {
	if s == "" {
		return "Unknown"
	}
	return string(s)
}
