package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/wordwrap"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/experiment"
	"github.com/paiml/sovereign-ai-stack-book/internal/montecarlo"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
	"github.com/paiml/sovereign-ai-stack-book/internal/stats"
)

// Catppuccin Mocha accents.
var (
	colorMauve  = lipgloss.Color("#cba6f7")
	colorBlue   = lipgloss.Color("#89b4fa")
	colorGreen  = lipgloss.Color("#a6e3a1")
	colorRed    = lipgloss.Color("#f38ba8")
	colorSubtle = lipgloss.Color("#6c7086")
)

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	muted  lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
	border lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(colorMauve),
		header: r.NewStyle().Bold(true).Foreground(colorBlue).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		muted:  r.NewStyle().Foreground(colorSubtle),
		good:   r.NewStyle().Foreground(colorGreen),
		bad:    r.NewStyle().Foreground(colorRed).Bold(true),
		border: r.NewStyle().Foreground(colorSubtle),
	}
}

func (r *Renderer) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.header
			}
			return r.styles.cell
		}).
		String()
}

func (r *Renderer) reportText(rep *experiment.Report) string {
	var b strings.Builder

	b.WriteString(r.styles.title.Render("Experiment: " + rep.Name))
	b.WriteString("\n")
	if len(rep.Entries) > 0 {
		cfg := rep.Entries[0].Result.Config
		b.WriteString(r.styles.muted.Render(fmt.Sprintf("%d trials × %d tasks, base seed %d, baseline %q",
			cfg.Trials, cfg.TasksPerTrial, cfg.BaseSeed, rep.Baseline)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		rows = append(rows, resultRow(e.Label, e.Result))
	}
	b.WriteString(r.table(resultHeaders, rows))
	b.WriteString("\n")

	if len(rep.Comparisons) > 0 {
		b.WriteString("\n")
		b.WriteString(r.styles.title.Render("Against " + rep.Baseline))
		b.WriteString("\n")
		rows = rows[:0]
		for _, c := range rep.Comparisons {
			row := comparisonRow(c)
			if c.Report.Improved() {
				row[1] = r.styles.good.Render(row[1])
			} else if c.Report.AbsoluteImprovement.Defined {
				row[1] = r.styles.bad.Render(row[1])
			}
			rows = append(rows, row)
		}
		b.WriteString(r.table(comparisonHeaders, rows))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(r.styles.title.Render("Failure modes"))
	b.WriteString("\n")
	rows = rows[:0]
	for _, e := range rep.Entries {
		rows = append(rows, modeRow(e.Label, e.Result))
	}
	b.WriteString(r.table(modeHeaders(), rows))
	b.WriteString("\n")
	b.WriteString(r.styles.muted.Render(wordwrap.String(modeNote, r.width)))
	b.WriteString("\n")

	for _, e := range rep.Entries {
		if len(e.Result.Complexity) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(r.styles.title.Render("Complexity: " + e.Label))
		b.WriteString("\n")
		b.WriteString(r.table(complexityHeaders, complexityRows(e.Result)))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) quorumText(q quorum.Quorum) string {
	var b strings.Builder
	b.WriteString(r.styles.title.Render(fmt.Sprintf("Quorum for f=%d", q.F)))
	b.WriteString("\n")
	b.WriteString(r.table([]string{"Agents (3f+1)", "Threshold (2f+1)", "Byzantine tolerated"}, [][]string{{
		strconv.Itoa(q.N), strconv.Itoa(q.Threshold), strconv.Itoa(q.F),
	}}))
	b.WriteString("\n")
	return b.String()
}

const modeNote = "Failure modes count every failed agent execution that contributed to a failed task, " +
	"so multi-agent strategies can record more than one mode per task."

var resultHeaders = []string{
	"Configuration", "Strategy", "Agents", "Success", "95% CI", "No consensus", "Wrong", "Calls/task", "Latency/task",
}

func resultRow(label string, r *montecarlo.SimulationResult) []string {
	return []string{
		label,
		r.Strategy,
		strconv.Itoa(r.Agents),
		fmt.Sprintf("%d/%d (%s)", r.Successes, r.TotalTasks, r.SuccessRate().Percent(2)),
		interval(r.SuccessInterval(stats.Z95)),
		strconv.Itoa(r.NoConsensus),
		strconv.Itoa(r.WrongAgreements),
		r.InvocationsPerTask().Format(2),
		micros(r.MeanLatency()),
	}
}

func micros(v stats.Ratio) string {
	if !v.Defined {
		return stats.NotApplicable
	}
	return v.Format(0) + " µs"
}

func interval(iv stats.Interval) string {
	if !iv.Low.Defined || !iv.High.Defined {
		return stats.NotApplicable
	}
	return iv.Low.Percent(2) + " – " + iv.High.Percent(2)
}

var comparisonHeaders = []string{
	"Candidate", "Improvement", "Failure reduction", "Multiplier", "Failures", "Overhead", "Latency cost",
}

func comparisonRow(c experiment.Comparison) []string {
	rep := c.Report
	improvement := stats.NotApplicable
	if v, ok := rep.AbsoluteImprovement.Get(); ok {
		improvement = fmt.Sprintf("%+.2f pp", v)
	}
	multiplier := stats.NotApplicable
	if rep.Multiplier.Defined {
		multiplier = rep.Multiplier.Format(3) + "×"
	}
	overhead := stats.NotApplicable
	if rep.InvocationOverhead.Defined {
		overhead = rep.InvocationOverhead.Format(1) + "×"
	}
	latency := stats.NotApplicable
	if v, ok := rep.LatencyOverhead.Get(); ok {
		latency = fmt.Sprintf("%+.1f%%", v*100)
	}
	return []string{
		c.Label,
		improvement,
		rep.FailureReduction.Percent(1),
		multiplier,
		fmt.Sprintf("%d → %d", rep.BaselineFailures, rep.CandidateFailures),
		overhead,
		latency,
	}
}

func modeHeaders() []string {
	headers := []string{"Configuration"}
	for _, m := range agent.FailureModes() {
		headers = append(headers, m.String())
	}
	return headers
}

func modeRow(label string, r *montecarlo.SimulationResult) []string {
	row := []string{label}
	for _, m := range agent.FailureModes() {
		row = append(row, fmt.Sprintf("%d (%s)", r.FailureModes[m], r.ModeShare(m).Percent(1)))
	}
	return row
}

var complexityHeaders = []string{"Complexity", "Passed", "Total", "Rate"}

func complexityRows(r *montecarlo.SimulationResult) [][]string {
	var rows [][]string
	for c := agent.MinComplexity; c <= agent.MaxComplexity; c++ {
		t, ok := r.Complexity[c]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(c), strconv.Itoa(t.Passed), strconv.Itoa(t.Total), t.Rate().Percent(1),
		})
	}
	return rows
}
