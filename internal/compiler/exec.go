package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
)

// Command placeholders expanded per invocation.
const (
	PlaceholderIn  = "{in}"
	PlaceholderOut = "{out}"
	PlaceholderDir = "{dir}"
)

// ExecCompiler invokes an external bundler once per script source. The
// command template carries {in}, {out}, and {dir} placeholders; non-script
// files fall back to the copy translation so assets still reach the output.
type ExecCompiler struct {
	command []string
	copier  *CopyCompiler
}

// NewExecCompiler returns a compiler shelling out to the given command
// template.
func NewExecCompiler(command []string) *ExecCompiler {
	return &ExecCompiler{command: command, copier: NewCopyCompiler()}
}

func (c *ExecCompiler) Compile(ctx context.Context, in Input) (*ProcessedFile, error) {
	if skippable(in.RelPath) {
		return nil, nil
	}
	if !isScript(in.RelPath) {
		return c.copier.Compile(ctx, in)
	}

	outPath := filepath.Join(in.OutputDir, outputRel(in.RelPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, hberrors.FileSystemError("prepare output dir", err)
	}
	if err := runCommand(ctx, c.command, in.SourcePath, outPath, filepath.Dir(in.SourcePath)); err != nil {
		return nil, err
	}

	return &ProcessedFile{
		SourcePath: in.SourcePath,
		OutputPath: outPath,
		Category:   Categorize(in.RelPath),
	}, nil
}

// ExecPageCompiler invokes an external UI bundler per page.
type ExecPageCompiler struct {
	command []string
}

// NewExecPageCompiler returns a page compiler shelling out to the given
// command template.
func NewExecPageCompiler(command []string) *ExecPageCompiler {
	return &ExecPageCompiler{command: command}
}

func (c *ExecPageCompiler) CompilePage(ctx context.Context, page Page) error {
	entry := filepath.Join(page.PluginDir, page.Entry)
	out := filepath.Join(page.OutputDir, "ui", "index.html")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return hberrors.FileSystemError("prepare ui output dir", err)
	}
	return runCommand(ctx, c.command, entry, out, page.PluginDir)
}

// runCommand expands the template and executes it, folding the combined
// output into the error on failure.
func runCommand(ctx context.Context, template []string, in, out, dir string) error {
	if len(template) == 0 {
		return hberrors.New(hberrors.CategoryCompile, hberrors.SeverityError, "empty compiler command")
	}
	args := make([]string, len(template))
	for i, arg := range template {
		arg = strings.ReplaceAll(arg, PlaceholderIn, in)
		arg = strings.ReplaceAll(arg, PlaceholderOut, out)
		arg = strings.ReplaceAll(arg, PlaceholderDir, dir)
		args[i] = arg
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return hberrors.Wrap(err, hberrors.CategoryCompile, hberrors.SeverityError, "compiler command failed").
			WithContext("command", args[0]).
			WithContext("input", in).
			WithContext("output", strings.TrimSpace(string(output)))
	}
	return nil
}

// ForConfig selects the compilers for the configured commands; empty command
// templates select the copy translation.
func ForConfig(scriptCommand, pageCommand []string) (Compiler, PageCompiler) {
	var c Compiler = NewCopyCompiler()
	if len(scriptCommand) > 0 {
		c = NewExecCompiler(scriptCommand)
	}
	var p PageCompiler = NewCopyPageCompiler()
	if len(pageCommand) > 0 {
		p = NewExecPageCompiler(pageCommand)
	}
	return c, p
}
