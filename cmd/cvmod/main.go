// Command cvmod runs control voltage patches.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/littleutils/cvmod/cmd/cvmod/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
