package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func newTestReporter() (*Reporter, *bytes.Buffer) {
	var buf bytes.Buffer
	r := New(&buf)
	r.DisableColor()
	r.SetClock(func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) })
	return r, &buf
}

func TestReporter_StatusLines(t *testing.T) {
	r, buf := newTestReporter()

	r.Successf("Instance %s is managed by SSM", "i-0abc")
	r.Failuref("Instance %s is NOT managed by SSM", "i-0abc")
	r.Warnf("Could not get initial patch state")
	r.Unknownf("No compliance result found")
	r.Detailf("Status: %s", "InProgress")

	want := "✅ Instance i-0abc is managed by SSM\n" +
		"❌ Instance i-0abc is NOT managed by SSM\n" +
		"⚠️ Could not get initial patch state\n" +
		"❓ No compliance result found\n" +
		"   Status: InProgress\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestReporter_Banner(t *testing.T) {
	r, buf := newTestReporter()
	r.Banner("AUTOMATED PATCHING TEST SCRIPT", F("Testing instance", "i-0abc"), F("AWS Region", "eu-west-1"))

	out := buf.String()
	for _, want := range []string{
		"=== AUTOMATED PATCHING TEST SCRIPT ===",
		"Date/Time: 2024-05-01 12:30:00",
		"Testing instance: i-0abc",
		"AWS Region: eu-west-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
}

func TestReporter_Summary(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    []string
		absent  []string
	}{
		{
			name: "patches reduced",
			summary: Summary{
				InstanceID: "i-0abc", ExecutionID: "exec-1", Status: "Success",
				HaveBoth: true, InitialMissing: 10, FinalMissing: 3, PatchesReduced: true,
			},
			want: []string{
				"Automation Executed: Yes (ID: exec-1)",
				"Automation Status: Success",
				"Initial Missing Patches: 10",
				"Final Missing Patches: 3",
				"✅ SUCCESS: Patches were installed by the automation",
			},
			absent: []string{"WARNING"},
		},
		{
			name: "no reduction",
			summary: Summary{
				InstanceID: "i-0abc", ExecutionID: "exec-1",
				HaveBoth: true, InitialMissing: 10, FinalMissing: 10,
			},
			want: []string{
				"Automation Status: Unknown",
				"⚠️ WARNING: No reduction in missing patches detected",
			},
			absent: []string{"SUCCESS"},
		},
		{
			name:    "no automation",
			summary: Summary{InstanceID: "i-0abc"},
			want:    []string{"Automation Executed: No", "Test completed."},
			absent:  []string{"Automation Status", "Initial Missing", "SUCCESS", "WARNING"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newTestReporter()
			r.Summary(tt.summary)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("summary missing %q:\n%s", w, out)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(out, a) {
					t.Errorf("summary unexpectedly contains %q:\n%s", a, out)
				}
			}
		})
	}
}
