package compiler

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
)

// CopyCompiler is the zero-toolchain fallback: script sources are carried
// over under their .js output name, everything else verbatim. It keeps a
// plugin workspace buildable and deployable when no bundler is configured.
type CopyCompiler struct{}

// NewCopyCompiler returns the copy translation compiler.
func NewCopyCompiler() *CopyCompiler {
	return &CopyCompiler{}
}

func (c *CopyCompiler) Compile(ctx context.Context, in Input) (*ProcessedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if skippable(in.RelPath) {
		return nil, nil
	}

	outPath := filepath.Join(in.OutputDir, outputRel(in.RelPath))
	if err := copyFile(in.SourcePath, outPath); err != nil {
		return nil, hberrors.FileSystemError("copy artifact", err)
	}

	return &ProcessedFile{
		SourcePath: in.SourcePath,
		OutputPath: outPath,
		Category:   Categorize(in.RelPath),
	}, nil
}

// CopyPageCompiler materializes a plugin's ui tree into the output without
// bundling. Missing entry points are tolerated; the page bundler owns the
// real build.
type CopyPageCompiler struct{}

// NewCopyPageCompiler returns the copy page compiler.
func NewCopyPageCompiler() *CopyPageCompiler {
	return &CopyPageCompiler{}
}

func (c *CopyPageCompiler) CompilePage(ctx context.Context, page Page) error {
	srcUI := filepath.Join(page.PluginDir, "ui")
	info, err := os.Stat(srcUI)
	if err != nil || !info.IsDir() {
		return nil
	}

	dstUI := filepath.Join(page.OutputDir, "ui")
	return filepath.WalkDir(srcUI, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcUI, path)
		if err != nil {
			return err
		}
		if err := copyFile(path, filepath.Join(dstUI, rel)); err != nil {
			return hberrors.FileSystemError("copy ui asset", err)
		}
		return nil
	})
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
