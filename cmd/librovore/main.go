// Command librovore runs the documentation-search CLI and MCP tool server.
package main

import (
	"fmt"
	"os"

	"github.com/emcd/librovore/pkg/cmd"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	build := cmd.BuildInfo{Version: version, AppName: "librovore"}

	root := cmd.InitCommand(build)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
