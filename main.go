// Command trail-cam-sorter sorts trail camera footage by the camera name and
// timestamp burned into each frame.
package main

import (
	"os"

	"github.com/briancolinger/trail-cam-sorter/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
