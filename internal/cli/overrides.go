package cli

import (
	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
	"github.com/paiml/sovereign-ai-stack-book/internal/montecarlo"
)

// runFlags are the Monte Carlo parameters every simulating command accepts.
// They override the experiment only when set on the command line.
type runFlags struct {
	Trials     int
	Tasks      int
	Seed       uint64
	SeedScheme string
	Workers    int
}

func addRunFlags(cmd *cobra.Command, rf *runFlags) {
	cmd.Flags().IntVar(&rf.Trials, "trials", montecarlo.DefaultTrials, "Independent trials")
	cmd.Flags().IntVar(&rf.Tasks, "tasks", montecarlo.DefaultTasksPerTrial, "Tasks per trial")
	cmd.Flags().Uint64Var(&rf.Seed, "seed", montecarlo.DefaultBaseSeed, "Base seed")
	cmd.Flags().StringVar(&rf.SeedScheme, "seed-scheme", string(montecarlo.SeedMixed), "Seed derivation: mixed, trial")
	cmd.Flags().IntVar(&rf.Workers, "workers", 0, "Concurrent trials (0 = logical CPUs, 1 = sequential)")
}

// apply copies the flags that were set onto e.
func (rf *runFlags) apply(cmd *cobra.Command, e *config.Experiment) {
	flags := cmd.Flags()
	if flags.Changed("trials") {
		e.Trials = rf.Trials
	}
	if flags.Changed("tasks") {
		e.TasksPerTrial = rf.Tasks
	}
	if flags.Changed("seed") {
		e.BaseSeed = rf.Seed
	}
	if flags.Changed("seed-scheme") {
		e.SeedScheme = montecarlo.SeedScheme(rf.SeedScheme)
	}
	if flags.Changed("workers") {
		e.Workers = rf.Workers
	}
}
