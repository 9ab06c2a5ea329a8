package remediation

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/awsclient"
	"github.com/kidoz/patch-compliance-check/internal/config"
	"github.com/kidoz/patch-compliance-check/internal/poll/polltest"
	"github.com/kidoz/patch-compliance-check/internal/report"
)

const testInstance = "i-0123456789abcdef0"

type fakeInventory struct {
	instance    *awsclient.Instance
	describeErr error
	states      []*awsclient.PatchState // returned in order, last one repeats
	stateErr    error
	details     *awsclient.InstanceDetails

	describeCalls int
	stateCalls    int
	detailCalls   int
}

func (f *fakeInventory) DescribeInstance(context.Context, string) (*awsclient.Instance, error) {
	f.describeCalls++
	return f.instance, f.describeErr
}

func (f *fakeInventory) PatchState(context.Context, string) (*awsclient.PatchState, error) {
	f.stateCalls++
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	if len(f.states) == 0 {
		return nil, nil
	}
	return f.states[min(f.stateCalls-1, len(f.states)-1)], nil
}

func (f *fakeInventory) InstanceDetails(context.Context, string) (*awsclient.InstanceDetails, error) {
	f.detailCalls++
	return f.details, nil
}

type fakePatches struct {
	startErr error
	waitErr  error

	startCalls int
	waitCalls  int
}

func (f *fakePatches) StartScan(context.Context, string) (string, error) {
	f.startCalls++
	if f.startErr != nil {
		return "", f.startErr
	}
	return "cmd-0001", nil
}

func (f *fakePatches) WaitForCommand(context.Context, string, string) error {
	f.waitCalls++
	return f.waitErr
}

type complianceReply struct {
	ct    awsclient.ComplianceType
	found bool
	err   error
}

type fakeCompliance struct {
	evalErr error
	replies []complianceReply // returned in order, last one repeats

	evalCalls  int
	checkCalls int
}

func (f *fakeCompliance) StartEvaluation(context.Context, string) error {
	f.evalCalls++
	return f.evalErr
}

func (f *fakeCompliance) RuleCompliance(context.Context, string, string) (awsclient.ComplianceType, bool, error) {
	f.checkCalls++
	if len(f.replies) == 0 {
		return "", false, nil
	}
	r := f.replies[min(f.checkCalls-1, len(f.replies)-1)]
	return r.ct, r.found, r.err
}

type statusReply struct {
	status awsclient.ExecutionStatus
	err    error
}

type fakeAutomation struct {
	listings [][]awsclient.Execution // returned in order, last one repeats
	listErr  error
	statuses []statusReply // returned in order, last one repeats

	listCalls   int
	statusCalls int
	prefixes    []string
}

func (f *fakeAutomation) ListExecutions(_ context.Context, prefix string) ([]awsclient.Execution, error) {
	f.listCalls++
	f.prefixes = append(f.prefixes, prefix)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.listings) == 0 {
		return nil, nil
	}
	return f.listings[min(f.listCalls-1, len(f.listings)-1)], nil
}

func (f *fakeAutomation) ExecutionStatus(context.Context, string) (awsclient.ExecutionStatus, error) {
	f.statusCalls++
	if len(f.statuses) == 0 {
		return "", nil
	}
	r := f.statuses[min(f.statusCalls-1, len(f.statuses)-1)]
	return r.status, r.err
}

type fakeIdentity struct {
	err error
}

func (f fakeIdentity) CallerIdentity(context.Context) (*awsclient.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsclient.Identity{Account: "123456789012", ARN: "arn:aws:iam::123456789012:user/tester"}, nil
}

type harness struct {
	tester     *Tester
	cfg        *config.Config
	out        *bytes.Buffer
	timer      *polltest.Timer
	inventory  *fakeInventory
	patches    *fakePatches
	compliance *fakeCompliance
	automation *fakeAutomation
}

// newHarness returns a Tester over a managed host whose fakes lead to a
// successful remediation: 10 missing patches before, 3 after.
func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		cfg:   config.DefaultConfig(),
		out:   &bytes.Buffer{},
		timer: polltest.NewTimer(),
		inventory: &fakeInventory{
			instance: &awsclient.Instance{InstanceID: testInstance, PingStatus: "Online", PlatformType: "Linux"},
			states: []*awsclient.PatchState{
				{InstanceID: testInstance, MissingCount: 10, Operation: "Scan"},
				{InstanceID: testInstance, MissingCount: 3, Operation: "Install"},
			},
			details: &awsclient.InstanceDetails{InstanceID: testInstance, Name: "patch-target", State: "running"},
		},
		patches: &fakePatches{},
		compliance: &fakeCompliance{replies: []complianceReply{
			{ct: awsclient.ComplianceNonCompliant, found: true},
		}},
		automation: &fakeAutomation{
			listings: [][]awsclient.Execution{{
				{
					ExecutionID: "exec-0001",
					Status:      awsclient.StatusInProgress,
					Targets:     []awsclient.Target{{Key: "InstanceIds", Values: []string{testInstance}}},
				},
			}},
			statuses: []statusReply{{status: awsclient.StatusInProgress}, {status: awsclient.StatusSuccess}},
		},
	}

	r := report.New(h.out)
	r.DisableColor()
	r.SetClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) })

	h.tester = New(h.cfg, zap.NewNop(), r, h.inventory, h.patches, h.compliance, h.automation, fakeIdentity{})
	h.tester.SetTimer(h.timer)
	return h
}

func (h *harness) options() Options {
	return Options{
		InstanceID: testInstance,
		RuleName:   h.cfg.Compliance.RuleName,
		WaitTime:   5 * time.Minute,
	}
}
