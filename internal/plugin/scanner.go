package plugin

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/manifest"
)

// Scanner discovers plugins under a plugins root.
type Scanner struct {
	ignore map[string]struct{}
	logger *slog.Logger
}

// NewScanner returns a scanner skipping the named directories (VCS internals,
// dependency caches) during traversal.
func NewScanner(ignore []string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	ig := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ig[name] = struct{}{}
	}
	return &Scanner{ignore: ig, logger: logger}
}

// Scan walks root and returns every plugin found, sorted by relative path.
// A directory is a plugin when it holds a manifest file; the walk descends
// through bracketed grouping folders but not into discovered plugins.
func (s *Scanner) Scan(root string) ([]*Plugin, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, hberrors.FileSystemError("resolve plugins root", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, hberrors.FileSystemError("stat plugins root", err)
	}

	var plugins []*Plugin
	if err := s.scanDir(absRoot, absRoot, &plugins); err != nil {
		return nil, err
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Path < plugins[j].Path })
	return plugins, nil
}

// ScanOne parses the single plugin rooted at dir. The returned plugin's Path
// is relative to root.
func (s *Scanner) ScanOne(root, dir string) (*Plugin, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, hberrors.FileSystemError("resolve plugins root", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, hberrors.FileSystemError("resolve plugin dir", err)
	}
	if !manifest.ExistsIn(absDir) {
		return nil, hberrors.ManifestInvalid(manifest.PathIn(absDir), os.ErrNotExist)
	}
	return s.parsePlugin(absRoot, absDir)
}

func (s *Scanner) scanDir(absRoot, dir string, out *[]*Plugin) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return hberrors.FileSystemError("read plugins dir", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if s.skip(name) {
			continue
		}
		sub := filepath.Join(dir, name)

		if manifest.ExistsIn(sub) {
			p, err := s.parsePlugin(absRoot, sub)
			if err != nil {
				// One bad plugin never aborts discovery.
				s.logger.Warn("skipping unreadable plugin",
					logfields.Path(sub), logfields.Error(err))
				continue
			}
			*out = append(*out, p)
			continue
		}

		// No manifest here: keep descending. Bracketed grouping folders and
		// plain directories both may hold plugins further down.
		if err := s.scanDir(absRoot, sub, out); err != nil {
			return err
		}
	}
	return nil
}

// parsePlugin reads one plugin directory into its immutable model.
func (s *Scanner) parsePlugin(absRoot, dir string) (*Plugin, error) {
	rel, err := filepath.Rel(absRoot, dir)
	if err != nil {
		return nil, hberrors.FileSystemError("relativize plugin dir", err)
	}

	p := &Plugin{
		Name:    pluginName(dir),
		Path:    rel,
		AbsPath: dir,
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && s.skip(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		relFile, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		p.Files = append(p.Files, File{
			Name:       d.Name(),
			Path:       relFile,
			AbsPath:    path,
			IsManifest: relFile == manifest.FileName,
		})
		if topSegment(relFile) == UIDir {
			p.HasUIPage = true
		}
		return nil
	})
	if err != nil {
		return nil, hberrors.FileSystemError("walk plugin dir", err)
	}

	sort.Slice(p.Files, func(i, j int) bool { return p.Files[i].Path < p.Files[j].Path })
	return p, nil
}

// pluginName derives the deploy name for a plugin directory: the declared
// manifest name when present, the directory basename otherwise.
func pluginName(dir string) string {
	if name, found := manifest.NameIn(dir); found && name != "" {
		return name
	}
	return filepath.Base(dir)
}

func (s *Scanner) skip(name string) bool {
	if _, ok := s.ignore[name]; ok {
		return true
	}
	return strings.HasPrefix(name, ".")
}

func topSegment(rel string) string {
	for {
		dir := filepath.Dir(rel)
		if dir == "." || dir == string(filepath.Separator) {
			return rel
		}
		rel = dir
	}
}
