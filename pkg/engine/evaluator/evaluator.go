// Package evaluator compares idleness and fleet totals against configured
// limits and decides actions. It never executes them.
package evaluator

import (
	"fmt"

	"github.com/DrSkyle/reaper/pkg/config"
	awsint "github.com/DrSkyle/reaper/pkg/engine/aws"
	"github.com/DrSkyle/reaper/pkg/idle"
)

// Action is the decision for one instance.
type Action int

const (
	ActionNone Action = iota
	ActionWarn
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionStop:
		return "stop"
	default:
		return "none"
	}
}

// ForInstance maps an effective idle duration onto an action. Stop takes
// precedence over warn; an instance is never both warned and stopped in the
// same pass. Unknown idleness never triggers an action: absence of metrics is
// not evidence of idleness.
func ForInstance(effective idle.Result, warningTimeoutHours, stopTimeoutHours float64) Action {
	if !effective.Known() {
		return ActionNone
	}
	if effective.Hours() >= stopTimeoutHours {
		return ActionStop
	}
	if effective.Hours() >= warningTimeoutHours {
		return ActionWarn
	}
	return ActionNone
}

// InstanceDecision pairs an in-scope instance with its idleness and the
// decided action.
type InstanceDecision struct {
	Instance  awsint.InstanceSummary
	Idleness  idle.Categories
	Effective idle.Result
	Action    Action
}

// Counters summarizes one instance pass.
type Counters struct {
	Checked int
	Warned  int
	Stopped int
}

// EvaluateInstances decides actions for in-scope instances. idleness[i] must
// correspond to instances[i].
func EvaluateInstances(instances []awsint.InstanceSummary, idleness []idle.Categories, cfg config.InstanceConfig) ([]InstanceDecision, Counters) {
	decisions := make([]InstanceDecision, 0, len(instances))
	var counters Counters

	for i, inst := range instances {
		effective := idleness[i].Effective()
		action := ForInstance(effective, cfg.WarningTimeoutHours, cfg.StopTimeoutHours)

		counters.Checked++
		switch action {
		case ActionWarn:
			counters.Warned++
		case ActionStop:
			counters.Stopped++
		}

		decisions = append(decisions, InstanceDecision{
			Instance:  inst,
			Idleness:  idleness[i],
			Effective: effective,
			Action:    action,
		})
	}

	return decisions, counters
}

// VolumeReport holds the volume pass totals and any threshold warnings.
// Each warning is independent; several can fire on one pass.
type VolumeReport struct {
	TotalGB        int64
	AvailableCount int
	LargeInUse     int
	Warnings       []string
}

// EvaluateVolumes checks the volume fleet against the configured limits.
func EvaluateVolumes(volumes []awsint.VolumeSummary, cfg config.VolumeConfig) VolumeReport {
	var report VolumeReport

	for _, v := range volumes {
		report.TotalGB += int64(v.SizeGB)
		if v.Available() {
			report.AvailableCount++
		} else if v.State == "in-use" && v.SizeGB > cfg.LargeSizeGB {
			report.LargeInUse++
		}
	}

	if report.AvailableCount > cfg.MaxAvailable {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"⚠️ Number of available volumes (%d) exceeds threshold (%d) ⚠️",
			report.AvailableCount, cfg.MaxAvailable))
	}
	if report.LargeInUse > cfg.MaxLargeInUse {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"⚠️ Number of in-use volumes > %dGB (%d) exceeds threshold (%d) ⚠️",
			cfg.LargeSizeGB, report.LargeInUse, cfg.MaxLargeInUse))
	}
	if report.TotalGB > cfg.MaxTotalGB {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"⚠️ Total EBS size (%d GB) exceeds threshold (%d GB) ⚠️",
			report.TotalGB, cfg.MaxTotalGB))
	}

	return report
}
