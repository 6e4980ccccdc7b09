package main

import (
	"os"

	"github.com/tphakala/rfscan-go/cmd"
	"github.com/tphakala/rfscan-go/internal/conf"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	settings := &conf.Settings{}
	if err := cmd.RootCommand(settings, version).Execute(); err != nil {
		os.Exit(1)
	}
}
