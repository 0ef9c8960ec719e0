// Command tracegraph builds causal graphs from ROS 2 trace records.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tracegraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
