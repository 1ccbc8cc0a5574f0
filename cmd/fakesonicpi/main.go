// fakesonicpi runs live-loop scripts and scenarios on a virtual beat clock.
package main

import (
	"fmt"
	"os"

	"github.com/porras/fake-sonic-pi/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
