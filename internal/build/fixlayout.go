package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/plugin"
)

// stageFixLayout repairs known quirks in the compiled output tree before it
// deploys:
//
//   - page bundlers that treat the output dir as their own root leave the UI
//     under ui/ui/; the inner tree is hoisted one level up
//   - directories emptied by skipped sources (declaration-only files) are
//     pruned so the deployed tree carries no dead folders
func (s *Service) stageFixLayout(_ context.Context, bc *Context) error {
	if _, err := os.Stat(bc.DistDir); os.IsNotExist(err) {
		return nil
	}

	hoisted, err := hoistDoubledUIDirs(bc.DistDir)
	if err != nil {
		return hberrors.FileSystemError("fix UI layout", err)
	}
	pruned, err := pruneEmptyDirs(bc.DistDir)
	if err != nil {
		return hberrors.FileSystemError("prune empty dirs", err)
	}

	if hoisted > 0 || pruned > 0 {
		bc.Logger.Debug("layout fixed",
			logfields.Count(hoisted+pruned))
	}
	return nil
}

// hoistDoubledUIDirs finds ui/ui/ nestings and moves the inner content up.
func hoistDoubledUIDirs(root string) (int, error) {
	var doubled []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() || entry.Name() != plugin.UIDir {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == plugin.UIDir {
			doubled = append(doubled, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, inner := range doubled {
		outer := filepath.Dir(inner)
		entries, err := os.ReadDir(inner)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if err := os.Rename(filepath.Join(inner, e.Name()), filepath.Join(outer, e.Name())); err != nil {
				return 0, err
			}
		}
		if err := os.Remove(inner); err != nil {
			return 0, err
		}
	}
	return len(doubled), nil
}

// pruneEmptyDirs removes empty directories bottom-up, never the root itself.
func pruneEmptyDirs(root string) (int, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	pruned := 0
	// Deepest first so a chain of empty parents collapses in one pass.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			if err := os.Remove(dirs[i]); err == nil {
				pruned++
			}
		}
	}
	return pruned, nil
}
