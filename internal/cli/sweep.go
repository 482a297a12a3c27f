package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
)

type sweepOptions struct {
	MaxF        int
	FailureRate float64
	Run         runFlags
}

func newSweepCmd(root *rootOptions) *cobra.Command {
	opts := sweepOptions{
		MaxF:        3,
		FailureRate: config.DefaultFailureRate,
	}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Measure majority voting at every fault tolerance up to --max-f",
		Long: `Compare a single agent against majority voting with f = 0, 1, ... max-f,
all agents sharing one failure rate. Each step adds three agents and raises
the vote threshold by two.`,
		Example: `  bftsim sweep
  bftsim sweep --max-f 5 --failure-rate 0.1 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.MaxF, "max-f", opts.MaxF, "Largest fault tolerance to simulate")
	cmd.Flags().Float64VarP(&opts.FailureRate, "failure-rate", "r", opts.FailureRate, "Per-agent failure rate")
	addRunFlags(cmd, &opts.Run)
	return cmd
}

func runSweep(cmd *cobra.Command, root *rootOptions, opts sweepOptions) error {
	r, err := root.renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if opts.MaxF < 0 {
		return fmt.Errorf("--max-f %d must be >= 0", opts.MaxF)
	}

	e := config.Sweep(opts.MaxF, opts.FailureRate)
	opts.Run.apply(cmd, e)
	return runAndRender(cmd.Context(), r, root.logger(cmd), e)
}
