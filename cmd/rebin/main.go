package main

import (
	"fmt"
	"os"

	"github.com/xtxerr/rebin/internal/cli"
	"github.com/xtxerr/rebin/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rebin: %v\n", err)
		if errors.IsUsage(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
