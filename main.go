// Package main provides the entry point for chmemsim.
// chmemsim is a trace-driven chip-multiprocessor memory hierarchy
// simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/chmemsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("chmemsim - CMP memory hierarchy simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: chmemsim run --trace <file> [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --config     Path to a JSON configuration file")
	fmt.Println("  --mode       Override the configured mode: A, B, C or DEF")
	fmt.Println("  --record-db  Optional SQLite file recording every reference")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/chmemsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/chmemsim' instead.")
	}
}
