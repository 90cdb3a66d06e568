package main

import (
	"github.com/openshelf/circulate/internal/config"
	"github.com/openshelf/circulate/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cfg := config.NewConfig()
	entrypoint.Run(cfg, Version)
}
