// Command cairn proves and verifies Cairo-VM executions.
//
// The prove subcommand consumes an input bundle dump (input.Input) and
// writes a proof file; the verify subcommand checks a proof file. Both run
// with stark.DefaultConfig unless overridden through flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cairn-zk/cairn"
	"github.com/cairn-zk/cairn/stark"
)

var rootCmd = &cobra.Command{
	Use:     "cairn",
	Short:   "cairn proves and verifies Cairo-VM executions",
	Version: cairn.Version.String(),
}

var (
	fLogMaxRows uint32
	fQueries    int
)

func init() {
	def := stark.DefaultConfig()
	rootCmd.PersistentFlags().Uint32Var(&fLogMaxRows, "log-max-rows", def.LogMaxRows, "log2 bound on committed column height")
	rootCmd.PersistentFlags().IntVar(&fQueries, "queries", def.NQueries, "number of sampled query positions")
}

func config() stark.Config {
	return stark.Config{LogMaxRows: fLogMaxRows, NQueries: fQueries}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
