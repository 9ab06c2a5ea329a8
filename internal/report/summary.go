package report

// Summary is the before/after outcome of a remediation check
type Summary struct {
	InstanceID     string
	ExecutionID    string // empty when no remediation run was found
	Status         string // last observed run status, empty if never observed
	HaveBoth       bool   // both patch snapshots were captured
	InitialMissing int
	FinalMissing   int
	PatchesReduced bool
}

// AutomationExecuted reports whether a remediation run was found.
func (s Summary) AutomationExecuted() bool {
	return s.ExecutionID != ""
}

// Summary prints the closing block of a check.
func (r *Reporter) Summary(s Summary) {
	r.Section("TEST SUMMARY")
	r.Infof("Instance ID: %s", s.InstanceID)
	r.Infof("Test Date/Time: %s", r.now().Format(timeLayout))

	if s.AutomationExecuted() {
		r.Infof("Automation Executed: Yes (ID: %s)", s.ExecutionID)
		status := s.Status
		if status == "" {
			status = "Unknown"
		}
		r.Infof("Automation Status: %s", status)
	} else {
		r.Infof("Automation Executed: No")
	}

	if s.HaveBoth {
		r.Infof("Initial Missing Patches: %d", s.InitialMissing)
		r.Infof("Final Missing Patches: %d", s.FinalMissing)
		if s.PatchesReduced {
			r.Successf("SUCCESS: Patches were installed by the automation")
		} else {
			r.Warnf("WARNING: No reduction in missing patches detected")
		}
	}

	r.Infof("\nTest completed.")
}
