// Package vcsinfo reads the workspace's git state for startup logging and
// status reporting. It never writes to the repository.
package vcsinfo

import (
	"log/slog"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/hotbuild/internal/logfields"
)

// Info describes the workspace revision a build ran against.
type Info struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
	Dirty  bool   `json:"dirty"`
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

// Detect opens the repository containing dir and reads HEAD. A workspace that
// is not a git repository is not an error; ok is false and builds proceed
// without revision stamping.
func Detect(dir string) (info Info, ok bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Info{}, false
	}

	head, err := repo.Head()
	if err != nil {
		return Info{}, false
	}
	info.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	// Worktree status can fail on exotic setups; revision alone is still
	// worth reporting.
	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}
	return info, true
}

// Log emits the detected revision through logger at startup.
func Log(logger *slog.Logger, dir string) {
	info, ok := Detect(dir)
	if !ok {
		logger.Debug("workspace is not a git repository", logfields.Path(dir))
		return
	}
	logger.Info("workspace revision",
		slog.String("commit", info.Short()),
		slog.String("branch", info.Branch),
		slog.Bool("dirty", info.Dirty))
}
