// hotbuild watches a plugin workspace, incrementally rebuilds what changed,
// deploys the output into a live server's resource tree, and asks the server
// over an authenticated control plane to restart the affected resources.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
)

// version is overridden at link time via -ldflags.
var version = "dev"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"hotbuild.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct{} `cmd:"" help:"Run one full build of every plugin and deploy it"`

	Watch struct {
		NoBuild bool `help:"Skip the initial full build and only watch"`
	} `cmd:"" help:"Build, then watch sources and hot-reload on change"`

	Agent struct{} `cmd:"" help:"Run the host-side control-plane service"`

	Resources struct{} `cmd:"" help:"List resources known to the control plane"`

	Restart struct {
		Resource string `arg:"" optional:"" help:"Resource to restart (all except self when omitted)"`
	} `cmd:"" help:"Restart a resource via the control plane"`

	Version struct{} `cmd:"" help:"Print the version"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	adapter := hberrors.NewCLIErrorAdapter(CLI.Verbose, logger)

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild(logger)
	case "watch":
		err = runWatch(logger)
	case "agent":
		err = runAgent(logger)
	case "resources":
		err = runResources(logger)
	case "restart", "restart <resource>":
		err = runRestart(logger)
	case "version":
		fmt.Println(version)
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}

	if err != nil {
		adapter.HandleError(err)
	}
}

// loadConfig loads the configured file or falls back to defaults with env
// overrides, so a bare workspace works without hotbuild.yaml.
func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(CLI.Config)
}

// signalContext returns a context canceled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
