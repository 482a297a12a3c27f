package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

func newQuorumCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quorum <f>",
		Short: "Show the agents and votes needed to tolerate f Byzantine faults",
		Example: `  bftsim quorum 1
  bftsim quorum 3 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("fault tolerance %q: %w", args[0], err)
			}
			q, err := quorum.New(f)
			if err != nil {
				return err
			}
			r, err := root.renderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return r.Quorum(q)
		},
	}
}
