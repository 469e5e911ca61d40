package controlplane

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/manifest"
	"git.home.luguber.info/inful/hotbuild/internal/resource"
)

// PlaceholderName is replaced with the resource name in restart command
// templates.
const PlaceholderName = "{name}"

// Host abstracts the environment the agent commands. The service layer only
// needs to enumerate resources and restart them by name.
type Host interface {
	// SelfName is the resource the agent itself runs under. Restart-all
	// never stops it.
	SelfName() string
	ListResources(ctx context.Context) ([]string, error)
	RestartResource(ctx context.Context, name string) error
}

// ScanningHost lists resources by scanning a resources root for manifest
// directories and restarts them through a configurable command template.
// An empty template makes restarts log-only, which is what a development
// host without process supervision wants.
type ScanningHost struct {
	root     string
	selfName string
	command  []string
	ignore   map[string]struct{}
	resolver *resource.Resolver
	logger   *slog.Logger
}

// NewScanningHost builds a host rooted at resourcesRoot. selfName is the
// agent's own resource; command is the restart template, each element run
// through {name} substitution (the name is appended when no element
// references it).
func NewScanningHost(resourcesRoot, selfName string, command []string, ignore []string, logger *slog.Logger) *ScanningHost {
	if logger == nil {
		logger = slog.Default()
	}
	ign := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ign[name] = struct{}{}
	}
	return &ScanningHost{
		root:     resourcesRoot,
		selfName: selfName,
		command:  command,
		ignore:   ign,
		resolver: resource.NewResolver(logger),
		logger:   logger,
	}
}

// SelfName returns the agent's own resource name.
func (h *ScanningHost) SelfName() string { return h.selfName }

// ListResources walks the resources root and resolves every manifest
// directory to its resource name. Bracketed grouping folders are traversed,
// never listed; nested directories inside a resource belong to it and are
// not descended into.
func (h *ScanningHost) ListResources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	err := filepath.WalkDir(h.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() {
			return nil
		}
		base := d.Name()
		if path != h.root {
			if _, skip := h.ignore[base]; skip || strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
		}
		if !manifest.ExistsIn(path) {
			return nil
		}
		if name, ok := h.resolver.ResolveDir(h.root, path); ok {
			seen[name] = struct{}{}
		}
		return filepath.SkipDir
	})
	if err != nil {
		return nil, hberrors.FileSystemError("failed to scan resources root", err).
			WithContext("root", h.root)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RestartResource executes the restart command template for name. With no
// template configured the restart is acknowledged and logged only.
func (h *ScanningHost) RestartResource(ctx context.Context, name string) error {
	if len(h.command) == 0 {
		h.logger.Info("restart requested (no restart command configured)",
			logfields.Resource(name))
		return nil
	}

	args := make([]string, 0, len(h.command)+1)
	substituted := false
	for _, arg := range h.command {
		if strings.Contains(arg, PlaceholderName) {
			substituted = true
		}
		args = append(args, strings.ReplaceAll(arg, PlaceholderName, name))
	}
	if !substituted {
		args = append(args, name)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("restart command for %s failed: %w (output: %s)",
			name, err, strings.TrimSpace(string(output)))
	}
	h.logger.Info("resource restarted", logfields.Resource(name))
	return nil
}
