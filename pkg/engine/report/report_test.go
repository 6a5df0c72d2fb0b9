package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sebdah/goldie/v2"

	awsint "github.com/DrSkyle/reaper/pkg/engine/aws"
	"github.com/DrSkyle/reaper/pkg/engine/evaluator"
	"github.com/DrSkyle/reaper/pkg/idle"
)

func TestMain(m *testing.M) {
	// Deterministic output regardless of the terminal running the tests.
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func sampleInstances() []awsint.InstanceSummary {
	return []awsint.InstanceSummary{
		{ID: "i-0aa111", Type: "m5.large", State: "running", Tags: map[string]string{"Name": "web-1"}},
		{ID: "i-0bb222", Type: "t3.micro", State: "stopped", Tags: map[string]string{}},
		{ID: "i-0cc333", Type: "c5.xlarge", State: "pending", Tags: map[string]string{"Name": "batch-worker"}},
	}
}

func TestWriteInstanceTable(t *testing.T) {
	var buf bytes.Buffer
	WriteInstanceTable(&buf, sampleInstances())

	g := goldie.New(t)
	g.Assert(t, "instance_table", buf.Bytes())
}

func TestWriteIdleness(t *testing.T) {
	decisions := []evaluator.InstanceDecision{
		{
			Instance: sampleInstances()[0],
			Idleness: idle.Categories{
				CPU:     idle.Hours(4.5),
				Disk:    idle.Unknown(),
				Network: idle.Hours(6),
			},
			Effective: idle.Hours(4.5),
			Action:    evaluator.ActionWarn,
		},
		{
			Instance: sampleInstances()[1],
			Idleness: idle.Categories{
				CPU:     idle.Unknown(),
				Disk:    idle.Unknown(),
				Network: idle.Unknown(),
			},
			Effective: idle.Unknown(),
			Action:    evaluator.ActionNone,
		},
	}

	var buf bytes.Buffer
	WriteIdleness(&buf, decisions)

	g := goldie.New(t)
	g.Assert(t, "idleness", buf.Bytes())
}

func TestWriteVolumeTable(t *testing.T) {
	volumes := []awsint.VolumeSummary{
		{ID: "vol-0aa", State: "in-use", Type: "gp3", SizeGB: 500, Tags: map[string]string{"Name": "data-primary"}},
		{ID: "vol-0bb", State: "available", Type: "gp2", SizeGB: 50, Tags: map[string]string{}},
	}

	var buf bytes.Buffer
	WriteVolumeTable(&buf, volumes, 550)

	g := goldie.New(t)
	g.Assert(t, "volume_table", buf.Bytes())
}

func TestSummaryLine(t *testing.T) {
	got := SummaryLine(evaluator.Counters{Checked: 12, Warned: 2, Stopped: 1})
	want := "Checked 12 instances, issued 2 warnings and stopped 1."
	if got != want {
		t.Errorf("SummaryLine = %q, want %q", got, want)
	}
}

func TestWriteActionsJSON(t *testing.T) {
	decisions := []evaluator.InstanceDecision{
		{
			Instance:  sampleInstances()[0],
			Effective: idle.Hours(4.5),
			Action:    evaluator.ActionWarn,
		},
		{
			Instance:  sampleInstances()[1],
			Effective: idle.Hours(9),
			Action:    evaluator.ActionStop,
		},
		{
			Instance:  sampleInstances()[2],
			Effective: idle.Hours(1),
			Action:    evaluator.ActionNone,
		},
	}
	costs := map[string]float64{"i-0aa111": 70.08}

	path := filepath.Join(t.TempDir(), "actions.json")
	if err := WriteActionsJSON(path, decisions, costs); err != nil {
		t.Fatalf("WriteActionsJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}

	var items []ActionItem
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}

	// ActionNone decisions are excluded and the rest sorted by idle hours
	// descending.
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].InstanceID != "i-0bb222" || items[0].Action != "stop" {
		t.Errorf("Expected the stop decision first, got %+v", items[0])
	}
	if items[0].NameTag != awsint.NoName {
		t.Errorf("Expected %q, got %q", awsint.NoName, items[0].NameTag)
	}
	if items[1].MonthlyCost != 70.08 {
		t.Errorf("Expected monthly cost carried through, got %f", items[1].MonthlyCost)
	}
	if bytes.Contains(data, []byte(`"monthly_cost": 0`)) {
		t.Error("Expected missing cost to be omitted from the export")
	}
}
