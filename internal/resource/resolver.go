package resource

import (
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/manifest"
)

// ManifestProbe reports whether dir holds a manifest file and the name it
// declares. Injected so resolution policy is testable without a filesystem.
type ManifestProbe func(dir string) (name string, found bool)

// Resolver maps filesystem paths to resource names. Resolution is an ordered
// chain: declared manifest name, manifest directory shape (with bracket
// walkback), then root-boundary segment fallback. The first hit wins.
// Successful resolutions are memoized per absolute directory.
type Resolver struct {
	probe  ManifestProbe
	cache  *Cache
	logger *slog.Logger
}

// NewResolver returns a resolver backed by the real manifest probe.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		probe:  manifest.NameIn,
		cache:  NewCache(),
		logger: logger,
	}
}

// WithProbe swaps the manifest probe. Used by tests and by callers that read
// manifests through another layer.
func (r *Resolver) WithProbe(probe ManifestProbe) *Resolver {
	if probe != nil {
		r.probe = probe
	}
	return r
}

// Cache exposes the underlying memoization table (for the rescan job and
// status reporting).
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve determines the resource that the file at path belongs to, walking
// upward from its containing directory to the root boundary.
func (r *Resolver) Resolve(root, path string) (string, bool) {
	return r.resolveFrom(root, filepath.Dir(path))
}

// ResolveDir is Resolve for callers that already hold a directory path.
func (r *Resolver) ResolveDir(root, dir string) (string, bool) {
	return r.resolveFrom(root, dir)
}

func (r *Resolver) resolveFrom(root, startDir string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	if !isWithin(absRoot, absDir) {
		return "", false
	}

	if name, ok := r.cache.Get(absDir); ok {
		return name, true
	}

	name, ok := r.resolveUncached(absRoot, absDir)
	if ok {
		r.cache.Put(absDir, name)
		r.logger.Debug("resolved resource name",
			logfields.Path(absDir), logfields.Resource(name))
	}
	return name, ok
}

// resolveUncached walks from startDir up to (but not including) absRoot.
func (r *Resolver) resolveUncached(absRoot, startDir string) (string, bool) {
	dir := startDir
	for dir != absRoot {
		base := filepath.Base(dir)

		// Structural levels are never resource roots; step over them.
		if IsStructural(base) {
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
			continue
		}

		if declared, found := r.probe(dir); found {
			if declared != "" {
				return normalizeName(declared), true
			}
			if !IsContainer(base) {
				return normalizeName(base), true
			}
			// A manifest inside a grouping folder: the nearest usable
			// segment back toward the root names the resource.
			if seg, ok := nearestUsableSegment(absRoot, dir); ok {
				return normalizeName(seg), true
			}
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// No manifest anywhere up to the boundary.
	if seg, ok := firstUsableSegment(absRoot, startDir); ok {
		return normalizeName(seg), true
	}
	return "", false
}

// nearestUsableSegment scans the segments between root and dir from the
// innermost outward and returns the first valid resource name.
func nearestUsableSegment(absRoot, dir string) (string, bool) {
	segs := relSegments(absRoot, dir)
	for i := len(segs) - 1; i >= 0; i-- {
		if IsValidName(segs[i]) {
			return segs[i], true
		}
	}
	return "", false
}

// firstUsableSegment scans the segments between root and dir from the root
// outward and returns the first valid resource name.
func firstUsableSegment(absRoot, dir string) (string, bool) {
	for _, seg := range relSegments(absRoot, dir) {
		if IsValidName(seg) {
			return seg, true
		}
	}
	return "", false
}

func relSegments(absRoot, dir string) []string {
	rel, err := filepath.Rel(absRoot, dir)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(rel, string(filepath.Separator))
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// normalizeName folds the name to NFC so paths reported in decomposed form
// (macOS) resolve to the same resource as their composed spelling.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}
