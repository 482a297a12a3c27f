// Command bftsim simulates Byzantine fault tolerant consensus over
// unreliable agents and reports the reliability gained.
package main

import (
	"os"

	"github.com/paiml/sovereign-ai-stack-book/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
