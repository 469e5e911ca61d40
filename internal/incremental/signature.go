// Package incremental lets compile stages skip plugins whose sources have
// not changed since the last pass. Granularity is whole-plugin: a signature
// covers every file under the plugin directory, and any difference re-runs
// the full stage for that plugin.
package incremental

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
)

// Signature is a stable fingerprint over a directory's files.
type Signature string

// ComputeSignature hashes every regular file under dir: relative path, size,
// mtime, and content, in sorted path order. Directories named in ignore and
// dot-directories are skipped.
func ComputeSignature(dir string, ignore []string) (Signature, error) {
	ig := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ig[name] = struct{}{}
	}

	type fileInfo struct {
		rel     string
		size    int64
		mtime   int64
		content uint64
	}
	var files []fileInfo

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			name := d.Name()
			if _, skip := ig[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := hashFile(path)
		if err != nil {
			return err
		}
		files = append(files, fileInfo{
			rel:     filepath.ToSlash(rel),
			size:    info.Size(),
			mtime:   info.ModTime().UnixNano(),
			content: content,
		})
		return nil
	})
	if err != nil {
		return "", hberrors.FileSystemError("walk for signature", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })

	h := xxhash.New()
	var buf [8]byte
	for _, f := range files {
		_, _ = h.WriteString(f.rel)
		_, _ = h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(f.size))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(f.mtime))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], f.content)
		_, _ = h.Write(buf[:])
	}
	return Signature(fmt.Sprintf("%016x", h.Sum64())), nil
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
