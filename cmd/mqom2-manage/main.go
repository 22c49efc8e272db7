// Command mqom2-manage builds, benchmarks, tests and packages the MQOM2
// signature variants.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/eunmann/mqom2-manage/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}
