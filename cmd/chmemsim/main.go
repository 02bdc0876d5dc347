// Command chmemsim replays a memory-reference trace through the
// simulated cache-and-DRAM hierarchy and reports per-component
// statistics.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/chmemsim/cmd/chmemsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
