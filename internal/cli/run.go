package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
	"github.com/paiml/sovereign-ai-stack-book/internal/experiment"
	"github.com/paiml/sovereign-ai-stack-book/internal/output"
	"github.com/paiml/sovereign-ai-stack-book/internal/watcher"
)

// runOptions holds CLI flags for run.
type runOptions struct {
	ConfigPath string
	Watch      bool
	Run        runFlags

	Label          string
	Strategy       string
	FaultTolerance int
	FailureRate    float64
	FailureRates   []float64
	Escalation     string
	Complexity     bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := runOptions{
		Strategy:       string(consensus.KindMajority),
		FaultTolerance: 1,
		FailureRate:    config.DefaultFailureRate,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate one strategy or an experiment file",
		Long: `Run a Monte Carlo simulation.

Without --config a single configuration is built from the strategy flags.
With --config every configuration in the experiment file is simulated and
compared against its baseline. Run flags such as --trials override the file
only when given.

With --watch the experiment file is re-run every time it changes, until
interrupted.`,
		Example: `  bftsim run --strategy majority --f 2 --failure-rate 0.23
  bftsim run --strategy dual --escalation arbiter --failure-rates 0.2,0.2,0.1
  bftsim run --config experiment.toml --format markdown
  bftsim run --config experiment.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Experiment file (.toml, .yaml)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when the experiment file changes")
	cmd.Flags().StringVar(&opts.Label, "label", "", "Configuration label (default: the strategy name)")
	cmd.Flags().StringVarP(&opts.Strategy, "strategy", "s", opts.Strategy, "Strategy: single, dual, majority")
	cmd.Flags().IntVar(&opts.FaultTolerance, "f", opts.FaultTolerance, "Byzantine faults tolerated by majority voting")
	cmd.Flags().Float64VarP(&opts.FailureRate, "failure-rate", "r", opts.FailureRate, "Per-agent failure rate")
	cmd.Flags().Float64SliceVar(&opts.FailureRates, "failure-rates", nil, "Per-agent failure rates, one per agent")
	cmd.Flags().StringVar(&opts.Escalation, "escalation", "", "Dual disagreement policy: none, arbiter, oracle")
	cmd.Flags().BoolVar(&opts.Complexity, "complexity", false, "Weight failure rates by task complexity")
	addRunFlags(cmd, &opts.Run)
	return cmd
}

func runRun(cmd *cobra.Command, root *rootOptions, opts runOptions) error {
	r, err := root.renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if opts.Watch && opts.ConfigPath == "" {
		return errors.New("--watch requires --config")
	}

	logger := root.logger(cmd)
	load := func() (*config.Experiment, error) {
		e := config.Only(opts.configuration())
		if opts.ConfigPath != "" {
			loaded, err := config.Load(opts.ConfigPath)
			if err != nil {
				return nil, err
			}
			e = loaded
		}
		opts.Run.apply(cmd, e)
		return e, nil
	}

	e, err := load()
	if err != nil {
		return err
	}
	if err := runAndRender(cmd.Context(), r, logger, e); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	logger.Info("watching experiment file", "path", opts.ConfigPath)
	return watcher.Watch(cmd.Context(), []string{opts.ConfigPath}, func(changed []string) {
		logger.Info("experiment file changed, re-running", "path", changed[0])
		e, err := load()
		if err == nil {
			err = runAndRender(cmd.Context(), r, logger, e)
		}
		if err != nil && cmd.Context().Err() == nil {
			_ = r.Error(err)
		}
	}, watcher.WithLogger(logger))
}

// configuration builds the ad hoc configuration described by the strategy
// flags.
func (o runOptions) configuration() config.Configuration {
	label := o.Label
	if label == "" {
		label = o.Strategy
	}
	return config.Configuration{
		Label:          label,
		Strategy:       consensus.Kind(o.Strategy),
		FaultTolerance: o.FaultTolerance,
		FailureRate:    o.FailureRate,
		FailureRates:   o.FailureRates,
		Escalation:     consensus.Escalation(o.Escalation),
		Complexity:     o.Complexity,
	}
}

// runAndRender runs e and writes its report.
func runAndRender(ctx context.Context, r *output.Renderer, logger *slog.Logger, e *config.Experiment) error {
	rep, err := experiment.NewRunner(logger).Run(ctx, e)
	if err != nil {
		return fmt.Errorf("experiment %q: %w", e.Name, err)
	}
	return r.Report(rep)
}
