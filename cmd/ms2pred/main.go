// ms2pred - Fetch, predict and compare peptide fragmentation spectra
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/ms2pred/cmd/ms2pred/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
