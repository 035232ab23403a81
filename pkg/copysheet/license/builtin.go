package license

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Builtin walks the tree and scans files in-process.
type Builtin struct {
	Options
}

func (b *Builtin) FindLicenseFiles(ctx context.Context, root string) ([]string, error) {
	fold := cases.Fold()
	want := fold.String(b.Pattern)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.Contains(fold.String(d.Name()), want) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func (b *Builtin) Grep(ctx context.Context, paths []string) (string, error) {
	var buf strings.Builder
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := b.grepFile(path, &buf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (b *Builtin) grepFile(path string, buf *strings.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, b.Marker) {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return scanner.Err()
}
