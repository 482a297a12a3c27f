package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
)

// compareOptions holds CLI flags for compare.
type compareOptions struct {
	ConfigPath string
	Baseline   string
	Run        runFlags
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare every configuration against a baseline",
		Long: `Simulate each configuration of an experiment and report how it changes
reliability relative to the baseline: absolute improvement in percentage
points, relative failure reduction, reliability multiplier and the extra
agent invocations paid for it.

Without --config the default experiment is used: a single agent against
majority voting with f=1 and f=2, every agent failing 23% of the time.`,
		Example: `  bftsim compare
  bftsim compare --config experiment.toml --baseline single
  bftsim compare --trials 1000 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Experiment file (.toml, .yaml)")
	cmd.Flags().StringVar(&opts.Baseline, "baseline", "", "Label of the baseline configuration (default: from the file)")
	addRunFlags(cmd, &opts.Run)
	return cmd
}

func runCompare(cmd *cobra.Command, root *rootOptions, opts compareOptions) error {
	r, err := root.renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	e := config.Default()
	if opts.ConfigPath != "" {
		if e, err = config.Load(opts.ConfigPath); err != nil {
			return err
		}
	}
	if opts.Baseline != "" {
		e.Baseline = opts.Baseline
	}
	opts.Run.apply(cmd, e)

	if len(e.Configurations) < 2 {
		return fmt.Errorf("experiment %q has %d configuration(s), compare needs at least 2", e.Name, len(e.Configurations))
	}
	return runAndRender(cmd.Context(), r, root.logger(cmd), e)
}
