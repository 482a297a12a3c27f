// Package cli implements the bftsim command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/output"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	Format  string
	Verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{Format: string(output.FormatText)}

	cmd := &cobra.Command{
		Use:   "bftsim",
		Short: "Simulate Byzantine fault tolerant consensus over unreliable agents",
		Long: `bftsim estimates how much redundancy and voting improve the reliability of
unreliable agents. Each agent fails independently at a configured rate by
hallucinating, corrupting its output or crashing. Strategies combine agent
votes into an outcome, and Monte Carlo runs measure how often that outcome
is correct.

Strategies:
  single    - one agent, its answer is final
  dual      - two agents must agree (optional arbiter or oracle escalation)
  majority  - 3f+1 agents, 2f+1 matching votes decide

Output formats:
  --format=text (default) - tables for the terminal
  --format=markdown       - rendered on a terminal, raw otherwise
  --format=json           - machine-readable JSON
  --format=yaml           - YAML`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", opts.Format, "Output format: text, markdown, json, yaml")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log per-trial detail to stderr")

	cmd.AddCommand(
		newRunCmd(opts),
		newCompareCmd(opts),
		newSweepCmd(opts),
		newQuorumCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		format, ferr := formatFlag(cmd)
		if ferr != nil {
			format = output.FormatText
		}
		_ = output.New(os.Stderr, format).Error(err)
		return 1
	}
	return 0
}

// formatFlag reads --format from the root of cmd's tree.
func formatFlag(cmd *cobra.Command) (output.Format, error) {
	f := cmd.Root().PersistentFlags().Lookup("format")
	if f == nil {
		return output.FormatText, nil
	}
	return output.ParseFormat(f.Value.String())
}

// logger returns a text logger on cmd's stderr.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// renderer returns a renderer for w in the selected format.
func (o *rootOptions) renderer(w io.Writer) (*output.Renderer, error) {
	format, err := output.ParseFormat(o.Format)
	if err != nil {
		return nil, fmt.Errorf("--format: %w", err)
	}
	return output.New(w, format), nil
}
