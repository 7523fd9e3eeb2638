// Command procsim is a cycle-accurate out-of-order execution engine
// simulator.
//
// For the full CLI, use: go run ./cmd/procsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("procsim - out-of-order execution engine simulator")
	fmt.Println()
	fmt.Println("Usage: procsim [options] <program.asm>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -rob       Reorder Buffer capacity")
	fmt.Println("  -rs        Reservation Station capacity")
	fmt.Println("  -lsq       Load/Store Queue capacity")
	fmt.Println("  -width     Reorder Buffer retire width")
	fmt.Println("  -cycles    maximum cycles to run")
	fmt.Println("  -config    path to a backend config JSON file")
	fmt.Println("  -v         verbose output")
	fmt.Println()
	fmt.Println("Run 'go run ./cmd/procsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/procsim' instead.")
	}
}
