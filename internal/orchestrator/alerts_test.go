package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/iyulab/phish-triage/internal/narrator"
	"github.com/iyulab/phish-triage/internal/priority"
)

const derivedAlerts = `src_ip,label,probability
10.0.0.1,ddos,0.99
10.0.0.2,ddos,0.80
10.0.0.3,benign,0.10
10.0.0.4,portscan,0.96
`

func TestRunAlerts_DerivesAndFilters(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, "alerts.csv", derivedAlerts)
	o, stdout, stderr := newTestOrchestrator(cfg, Options{})

	res, err := o.RunAlerts(context.Background(), AlertOptions{Input: input, Priorities: []string{"high"}})
	if err != nil {
		t.Fatalf("RunAlerts error: %v", err)
	}
	if res.Queue.Len() != 2 {
		t.Fatalf("Len = %d, want 2", res.Queue.Len())
	}
	rows := res.Queue.Rows()
	if rows[0].Fields["src_ip"] != "10.0.0.1" || rows[1].Fields["src_ip"] != "10.0.0.4" {
		t.Errorf("order = %s, %s", rows[0].Fields["src_ip"], rows[1].Fields["src_ip"])
	}
	if got := res.Queue.Counts()[priority.High]; got != 2 {
		t.Errorf("HIGH count = %d, want 2", got)
	}
	if !strings.Contains(stdout.String(), "PRIORITIZED ALERT QUEUE") {
		t.Errorf("stdout:\n%s", stdout)
	}
	if !strings.Contains(stderr.String(), "priorities derived") {
		t.Errorf("stderr:\n%s", stderr)
	}
	if res.Narrative != "" {
		t.Errorf("Narrative = %q without --narrate", res.Narrative)
	}
}

func TestRunAlerts_LabelFilterAndNarration(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, "alerts.csv", derivedAlerts)
	o, stdout, _ := newTestOrchestrator(cfg, Options{})
	o.SetSummarizer(narrator.Static("Two DDoS sources dominate."))

	res, err := o.RunAlerts(context.Background(), AlertOptions{Input: input, Labels: []string{"ddos"}, Narrate: true})
	if err != nil {
		t.Fatalf("RunAlerts error: %v", err)
	}
	if res.Queue.Len() != 2 {
		t.Errorf("Len = %d, want 2", res.Queue.Len())
	}
	if !res.Narrated {
		t.Error("expected narration")
	}
	if !strings.Contains(stdout.String(), "Two DDoS sources dominate.") {
		t.Errorf("stdout missing narrative:\n%s", stdout)
	}
}

func TestRunAlerts_StoredPriority(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, "alerts.csv", "id,priority,label\n1,BAIXA,x\n2,ALTA,y\n3,MÉDIA,x\n")
	o, _, _ := newTestOrchestrator(cfg, Options{})

	res, err := o.RunAlerts(context.Background(), AlertOptions{Input: input})
	if err != nil {
		t.Fatalf("RunAlerts error: %v", err)
	}
	if res.Queue.Derived() {
		t.Error("stored priorities should not be derived")
	}
	var got []priority.Level
	for _, r := range res.Queue.Rows() {
		got = append(got, r.Priority)
	}
	want := []priority.Level{priority.High, priority.Medium, priority.Low}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("priorities = %v, want %v", got, want)
		}
	}
}

func TestRunAlerts_Errors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		o, _, _ := newTestOrchestrator(testConfig(t), Options{})
		if _, err := o.RunAlerts(context.Background(), AlertOptions{}); err == nil {
			t.Error("expected error without an alert file")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		o, _, _ := newTestOrchestrator(testConfig(t), Options{})
		if _, err := o.RunAlerts(context.Background(), AlertOptions{Input: t.TempDir() + "/missing.csv"}); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("bad priority filter", func(t *testing.T) {
		input := writeInput(t, "alerts.csv", derivedAlerts)
		o, _, _ := newTestOrchestrator(testConfig(t), Options{})
		if _, err := o.RunAlerts(context.Background(), AlertOptions{Input: input, Priorities: []string{"urgent"}}); err == nil {
			t.Error("expected error for unknown priority")
		}
	})
}
