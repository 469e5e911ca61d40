package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/build"
	"git.home.luguber.info/inful/hotbuild/internal/controlplane"
	"git.home.luguber.info/inful/hotbuild/internal/daemon"
	"git.home.luguber.info/inful/hotbuild/internal/debounce"
	"git.home.luguber.info/inful/hotbuild/internal/deploy"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/vcsinfo"
)

// runBuild performs one full pipeline pass and exits.
func runBuild(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	vcsinfo.Log(logger, cfg.Paths.Root)

	deployer := deploy.NewDeployer(cfg.Server, cfg.Paths.DistDir, logger)
	service := build.NewService(cfg, deployer, logger)

	bc := build.NewContext(cfg, build.TriggerFull, logger)
	start := time.Now()
	if err := service.Run(ctx, bc); err != nil {
		return err
	}
	logger.Info("build complete",
		logfields.DurationMS(float64(time.Since(start).Milliseconds())),
		logfields.Count(len(bc.Touched())))
	return nil
}

// runWatch runs the orchestrating daemon until interrupted.
func runWatch(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Watch.Enabled = true

	d, err := daemon.New(cfg, daemon.Options{
		Version:          version,
		SkipInitialBuild: CLI.Watch.NoBuild,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return d.Run(ctx)
}

// runAgent runs the host-side control-plane service until interrupted. The
// agent lives inside the game server machine's environment and restarts
// resources on command or when its artifact tree changes.
func runAgent(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resourcesDir, ok := cfg.Server.ResolveResourcesDir()
	if !ok {
		return hberrors.ConfigInvalid("server",
			"agent requires server.resources_dir or server.name with server.servers_root")
	}
	if cfg.Reload.APIKey == "" {
		return hberrors.ConfigInvalid("reload.api_key",
			"agent requires the shared API key")
	}

	ctx, cancel := signalContext()
	defer cancel()

	host := controlplane.NewScanningHost(resourcesDir, cfg.Agent.SelfName,
		cfg.Agent.RestartCommand, cfg.Watch.Ignore, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Agent.Host, cfg.Agent.Port)
	server := controlplane.NewServer(addr, cfg.Reload.APIKey, host, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	scheduler := debounce.NewScheduler(debounce.DelayPolicy{
		Default:   cfg.Watch.Debounce.Default(),
		Webview:   cfg.Watch.Debounce.Webview(),
		Generated: cfg.Watch.Debounce.Generated(),
	}, logger)
	artifacts := controlplane.NewArtifactWatcher(resourcesDir, host, scheduler,
		cfg.Watch.Ignore, logger)
	go func() {
		if err := artifacts.Start(ctx); err != nil {
			logger.Warn("artifact watcher unavailable", logfields.Error(err))
		}
	}()

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	artifacts.Stop()
	scheduler.Stop()
	return server.Stop(stopCtx)
}

// runResources lists the resources the control plane knows about.
func runResources(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := controlplane.NewClient(cfg.Reload.Host, cfg.Reload.Port,
		cfg.Reload.APIKey, cfg.Reload.Timeout(), logger)
	names, err := client.ListResources(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// runRestart restarts one named resource, or everything except the host's
// own resource when no name is given.
func runRestart(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := controlplane.NewClient(cfg.Reload.Host, cfg.Reload.Port,
		cfg.Reload.APIKey, cfg.Reload.Timeout(), logger)

	var res controlplane.Result
	if CLI.Restart.Resource != "" {
		res = client.Restart(ctx, CLI.Restart.Resource)
	} else {
		res = client.RestartAll(ctx)
	}
	if !res.OK {
		if res.Err != nil {
			return hberrors.ReloadFailed(CLI.Restart.Resource, res.Err)
		}
		return hberrors.ReloadFailed(CLI.Restart.Resource,
			fmt.Errorf("control plane returned %d: %s", res.StatusCode, res.Message))
	}
	fmt.Println(res.Message)
	return nil
}
