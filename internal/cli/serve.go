package cli

import (
	"github.com/spf13/cobra"

	"github.com/paiml/sovereign-ai-stack-book/internal/serve"
)

type serveOptions struct {
	Addr           string
	MaxSamples     int
	AllowedOrigins []string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := serveOptions{
		Addr:       serve.DefaultAddr,
		MaxSamples: serve.DefaultMaxSamples,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulations over HTTP",
		Long: `Start a JSON API until interrupted.

Routes:
  GET  /healthz
  POST /v1/experiments           experiment as JSON, TOML or YAML (by Content-Type)
  GET  /v1/experiments/default   the default experiment
  GET  /v1/sweep                 ?max_f=&failure_rate=&trials=&tasks=&seed=
  GET  /v1/quorum/{f}`,
		Example: `  bftsim serve
  bftsim serve --addr :9000 --max-samples 10000000
  bftsim serve --cors-origin http://localhost:5173`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := serve.New(
				serve.WithLogger(root.logger(cmd)),
				serve.WithMaxSamples(opts.MaxSamples),
				serve.WithAllowedOrigins(opts.AllowedOrigins...),
			)
			return s.ListenAndServe(cmd.Context(), opts.Addr)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", opts.Addr, "Listen address")
	cmd.Flags().IntVar(&opts.MaxSamples, "max-samples", opts.MaxSamples, "Most agent executions (trials × tasks × agents) one request may run")
	cmd.Flags().StringSliceVar(&opts.AllowedOrigins, "cors-origin", nil, "Origins allowed to call the API from a browser (repeatable, * for any)")
	return cmd
}
