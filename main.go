/*
Lumen is a small hybrid renderer: the same scene can be rasterized or
path traced with progressive accumulation, sharing one descriptor set
between both pipelines.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
)

func main() {
	configPath := flag.String("config", "lumen.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogWarn("%s, falling back to defaults", err)
		cfg = config.Default()
	}

	app := engine.New(cfg)
	if err := app.Initialize(); err != nil {
		core.LogFatal("initialization failed: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = app.Shutdown()
		os.Exit(0)
	}()

	if err := app.Run(); err != nil {
		core.LogError("frame loop stopped: %s", err)
	}
	if err := app.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
	}
}
