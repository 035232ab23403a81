package license

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Exec shells out to find(1) and grep(1), passing every path as its own argument.
type Exec struct {
	Options
	// FindCmd and GrepCmd name the executables.
	FindCmd string
	GrepCmd string
}

func (e *Exec) FindLicenseFiles(ctx context.Context, root string) ([]string, error) {
	// find(1) reads a leading "-" as an expression
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, e.FindCmd, root, "-type", "f", "-iname", "*"+e.Pattern+"*")
	out, err := cmd.Output()
	if err != nil {
		return nil, commandError(e.FindCmd, err)
	}
	return splitPaths(string(out)), nil
}

func (e *Exec) Grep(ctx context.Context, paths []string) (string, error) {
	var buf strings.Builder
	for _, path := range paths {
		cmd := exec.CommandContext(ctx, e.GrepCmd, "-h", "-e", e.Marker, "--", path)
		out, err := cmd.Output()
		if err != nil {
			// exit status 1: no line matched
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
				continue
			}
			return "", commandError(e.GrepCmd, err)
		}
		buf.Write(out)
	}
	return buf.String(), nil
}

func commandError(name string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("%s: %w", name, err)
}
