package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/paiml/sovereign-ai-stack-book/internal/experiment"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

// markdown writes md, rendered through glamour on a terminal and raw
// otherwise so it can be piped into files.
func (r *Renderer) markdown(md string) error {
	if !r.tty {
		_, err := io.WriteString(r.w, md)
		return err
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := tr.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(r.w, out)
	return err
}

func mdTable(b *strings.Builder, headers []string, rows [][]string) {
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func reportMarkdown(rep *experiment.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiment: %s\n\n", rep.Name)
	if len(rep.Entries) > 0 {
		cfg := rep.Entries[0].Result.Config
		fmt.Fprintf(&b, "%d trials × %d tasks, base seed %d, baseline `%s`.\n\n",
			cfg.Trials, cfg.TasksPerTrial, cfg.BaseSeed, rep.Baseline)
	}

	b.WriteString("## Results\n\n")
	rows := make([][]string, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		rows = append(rows, resultRow(e.Label, e.Result))
	}
	mdTable(&b, resultHeaders, rows)

	if len(rep.Comparisons) > 0 {
		fmt.Fprintf(&b, "\n## Against %s\n\n", rep.Baseline)
		rows = rows[:0]
		for _, c := range rep.Comparisons {
			rows = append(rows, comparisonRow(c))
		}
		mdTable(&b, comparisonHeaders, rows)
	}

	b.WriteString("\n## Failure modes\n\n")
	rows = rows[:0]
	for _, e := range rep.Entries {
		rows = append(rows, modeRow(e.Label, e.Result))
	}
	mdTable(&b, modeHeaders(), rows)
	b.WriteString("\n_" + modeNote + "_\n")

	for _, e := range rep.Entries {
		if len(e.Result.Complexity) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## Complexity: %s\n\n", e.Label)
		mdTable(&b, complexityHeaders, complexityRows(e.Result))
	}
	return b.String()
}

func quorumMarkdown(q quorum.Quorum) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Quorum for f=%d\n\n", q.F)
	mdTable(&b, []string{"Agents (3f+1)", "Threshold (2f+1)", "Byzantine tolerated"},
		[][]string{{fmt.Sprint(q.N), fmt.Sprint(q.Threshold), fmt.Sprint(q.F)}})
	return b.String()
}
