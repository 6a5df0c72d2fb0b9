// Package report renders the pass output: fleet tables, idleness detail, and
// the machine-readable action export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	awsint "github.com/DrSkyle/reaper/pkg/engine/aws"
	"github.com/DrSkyle/reaper/pkg/engine/evaluator"
	"github.com/DrSkyle/reaper/pkg/idle"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#00FF99"))

// Header renders a styled section title with an underline.
func Header(title string) string {
	return headerStyle.Render(title) + "\n" + strings.Repeat("=", len(title))
}

// WriteInstanceTable prints the fleet sorted by state, one instance per line.
func WriteInstanceTable(w io.Writer, instances []awsint.InstanceSummary) {
	sorted := make([]awsint.InstanceSummary, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].State < sorted[j].State
	})

	fmt.Fprintln(w, Header("Instances"))
	for _, inst := range sorted {
		fmt.Fprintf(w, "%-64s  %s  %-16s %s\n", inst.Name(), inst.ID, inst.Type, inst.State)
	}
}

// WriteIdleness prints the per-category idle durations for each decision.
func WriteIdleness(w io.Writer, decisions []evaluator.InstanceDecision) {
	fmt.Fprintln(w, Header("Idleness"))
	for _, d := range decisions {
		fmt.Fprintf(w, "%s cpu_idle=%s net_idle=%s disk_idle=%s effective=%s action=%s\n",
			d.Instance.Name(),
			formatResult(d.Idleness.CPU),
			formatResult(d.Idleness.Network),
			formatResult(d.Idleness.Disk),
			formatResult(d.Effective),
			d.Action)
	}
}

// WriteVolumeTable prints every volume and a total-size footer.
func WriteVolumeTable(w io.Writer, volumes []awsint.VolumeSummary, totalGB int64) {
	fmt.Fprintln(w, Header("Volumes"))
	for _, v := range volumes {
		fmt.Fprintf(w, "%-64s  %-10s  %6d GB\n", v.Name(), v.State, v.SizeGB)
	}
	fmt.Fprintln(w, strings.Repeat("-", 87))
	fmt.Fprintf(w, "%-64s  %-10s  %6d GB\n", "Total Size", "", totalGB)
}

// SummaryLine is the single-line pass result.
func SummaryLine(c evaluator.Counters) string {
	return fmt.Sprintf("Checked %d instances, issued %d warnings and stopped %d.",
		c.Checked, c.Warned, c.Stopped)
}

func formatResult(r idle.Result) string {
	if !r.Known() {
		return "n/a"
	}
	return fmt.Sprintf("%.2fh", r.Hours())
}

// ActionItem matches the JSON export structure.
type ActionItem struct {
	InstanceID   string  `json:"instance_id"`
	NameTag      string  `json:"name_tag"`
	InstanceType string  `json:"instance_type"`
	State        string  `json:"state"`
	IdleHours    float64 `json:"idle_hours"`
	Action       string  `json:"action"`
	MonthlyCost  float64 `json:"monthly_cost,omitempty"`
}

// WriteActionsJSON exports warn/stop decisions, sorted by idle hours
// descending, to a JSON file. costs maps instance ID to estimated monthly
// cost; missing entries are omitted.
func WriteActionsJSON(path string, decisions []evaluator.InstanceDecision, costs map[string]float64) error {
	var items []ActionItem
	for _, d := range decisions {
		if d.Action == evaluator.ActionNone {
			continue
		}
		item := ActionItem{
			InstanceID:   d.Instance.ID,
			NameTag:      d.Instance.Name(),
			InstanceType: d.Instance.Type,
			State:        d.Instance.State,
			IdleHours:    d.Effective.Hours(),
			Action:       d.Action.String(),
		}
		if cost, ok := costs[d.Instance.ID]; ok {
			item.MonthlyCost = cost
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].IdleHours > items[j].IdleHours
	})

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
