package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cairn-zk/cairn/cairo"
	"github.com/cairn-zk/cairn/input"
)

var proveCmd = &cobra.Command{
	Use:   "prove [input file]",
	Short: "generates a proof for an execution input bundle",
	Run:   cmdProve,
}

var fProofPath string

func init() {
	rootCmd.AddCommand(proveCmd)
	proveCmd.PersistentFlags().StringVar(&fProofPath, "proof", "", "full path for the proof, default is [input].proof")
}

func cmdProve(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		fmt.Println("missing input path, see cairn prove -h")
		os.Exit(-1)
	}
	inputPath := filepath.Clean(args[0])
	if !fileExists(inputPath) {
		fmt.Println(inputPath, "does not exist")
		os.Exit(-1)
	}

	in := new(input.Input)
	f, err := os.Open(inputPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(-1)
	}
	_, err = in.ReadFrom(f)
	_ = f.Close()
	if err != nil {
		fmt.Println("can't load input:", err)
		os.Exit(-1)
	}
	fmt.Printf("%-20s %-30s %d range check cells, %d rets\n",
		"loaded input", inputPath, in.RangeCheckBuiltin.Size, len(in.Instructions.Ret))

	start := time.Now()
	proof, err := cairo.Prove(in, config())
	if err != nil {
		fmt.Println("proving failed:", err)
		os.Exit(-1)
	}

	proofPath := inputPath + ".proof"
	if fProofPath != "" {
		proofPath = filepath.Clean(fProofPath)
	}
	out, err := os.Create(proofPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(-1)
	}
	n, err := proof.WriteTo(out)
	if err == nil {
		err = out.Close()
	} else {
		_ = out.Close()
	}
	if err != nil {
		fmt.Println("can't write proof:", err)
		os.Exit(-1)
	}
	fmt.Printf("%-20s %-30s %d bytes, took %s\n", "proof written", proofPath, n, time.Since(start))
}
