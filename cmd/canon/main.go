// Command canon curates a citation-grounded knowledge base.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/canon/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetFactory(wire)
	if err := cli.Execute(version); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
