package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cairn-zk/cairn/cairo"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [proof file]",
	Short: "checks a proof file",
	Run:   cmdVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func cmdVerify(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		fmt.Println("missing proof path, see cairn verify -h")
		os.Exit(-1)
	}
	proofPath := filepath.Clean(args[0])
	if !fileExists(proofPath) {
		fmt.Println(proofPath, "does not exist")
		os.Exit(-1)
	}

	proof := new(cairo.Proof)
	f, err := os.Open(proofPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(-1)
	}
	_, err = proof.ReadFrom(f)
	_ = f.Close()
	if err != nil {
		fmt.Println("can't load proof:", err)
		os.Exit(-1)
	}

	start := time.Now()
	if err := cairo.Verify(proof, config()); err != nil {
		fmt.Println("proof is invalid:", err)
		os.Exit(-1)
	}
	fmt.Printf("%-20s %-30s took %s\n", "proof verified", proofPath, time.Since(start))
}
