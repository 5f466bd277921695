// Shopdash CLI: read analytics datasets from the command line
//
// Usage:
//
//	shopdash dashboard
//	shopdash get sessions-by-device
//	shopdash datasets
//	shopdash doctor --server http://localhost:5000/api
//	shopdash config set-server https://analytics.example.com/api
package main

import (
	"fmt"
	"os"

	"github.com/shopdash/shopdash/cmd/shopdash/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
