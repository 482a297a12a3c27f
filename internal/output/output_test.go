package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
	"github.com/paiml/sovereign-ai-stack-book/internal/experiment"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

func sampleReport(t *testing.T) *experiment.Report {
	t.Helper()
	e := config.Default()
	e.Trials, e.TasksPerTrial = 5, 20
	e.Configurations = append(e.Configurations, config.Configuration{
		Label: "weighted", Strategy: consensus.KindDual, FailureRate: 0.1, Complexity: true,
	})
	rep, err := experiment.NewRunner(nil).Run(context.Background(), e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return rep
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestReport_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatText).Report(sampleReport(t)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Experiment: default", "single", "bft-f2", "MajorityVote(f=2)",
		"Against single", "Failure modes", "hallucination", "Complexity: weighted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("non-terminal output should not contain ANSI escapes")
	}
}

func TestReport_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatMarkdown).Report(sampleReport(t)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "# Experiment: default") {
		t.Errorf("markdown should start with a heading:\n%s", out)
	}
	if !strings.Contains(out, "| Configuration | Strategy |") || !strings.Contains(out, "## Against single") {
		t.Errorf("markdown tables missing:\n%s", out)
	}
	// single: 1500 µs per task; bft-f1: 4 × 1500 + 200 µs.
	for _, want := range []string{"Latency/task", "| 1500 µs |", "| 6200 µs |", "Latency cost", "+313.3%"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestReport_MarkdownOnTTY(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, FormatMarkdown, WithTTY(true), WithWidth(80))
	if err := r.Report(sampleReport(t)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !strings.Contains(buf.String(), "Experiment: default") {
		t.Errorf("rendered markdown missing title:\n%s", buf.String())
	}
}

func TestReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatJSON).Report(sampleReport(t)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	var decoded struct {
		Name    string `json:"name"`
		Results []struct {
			Label  string `json:"label"`
			Result struct {
				TotalTasks  int      `json:"total_tasks"`
				SuccessRate *float64 `json:"success_rate"`
			} `json:"result"`
		} `json:"results"`
		Comparisons []struct {
			Label string `json:"label"`
		} `json:"comparisons"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.Name != "default" || len(decoded.Results) != 4 || len(decoded.Comparisons) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Results[0].Result.TotalTasks != 100 || decoded.Results[0].Result.SuccessRate == nil {
		t.Errorf("first result = %+v", decoded.Results[0].Result)
	}
}

func TestReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatYAML).Report(sampleReport(t)); err != nil {
		t.Fatalf("Report: %v", err)
	}
	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if decoded["name"] != "default" || decoded["baseline"] != "single" {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(buf.String(), "success_rate:") {
		t.Errorf("yaml should carry derived rates:\n%s", buf.String())
	}
}

func TestQuorum(t *testing.T) {
	q, _ := quorum.New(2)
	for _, f := range AllFormats() {
		var buf bytes.Buffer
		if err := New(&buf, f).Quorum(q); err != nil {
			t.Fatalf("%s: Quorum: %v", f, err)
		}
		if !strings.Contains(buf.String(), "7") || !strings.Contains(buf.String(), "5") {
			t.Errorf("%s: output missing n=7 threshold=5:\n%s", f, buf.String())
		}
	}
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatJSON).Error(errors.New("boom")); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != `{
  "error": "boom"
}` {
		t.Errorf("json error = %s", buf.String())
	}

	buf.Reset()
	_ = New(&buf, FormatText).Error(errors.New("boom"))
	if !strings.Contains(buf.String(), "Error: boom") {
		t.Errorf("text error = %q", buf.String())
	}
}
