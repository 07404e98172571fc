// Command scenesync publishes scenes to a sync server and runs a local one.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scenesync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
