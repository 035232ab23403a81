// Package license locates license files in an extracted package tree and
// pulls copyright lines out of them.
package license

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultPattern is matched case-insensitively against file names.
	DefaultPattern = "LICENSE"
	// DefaultMarker selects copyright lines, case-sensitively.
	DefaultMarker = "Copyright"
)

// Search backend names.
const (
	BackendExec    = "exec"
	BackendBuiltin = "builtin"
)

// ErrUnknownBackend indicates an unsupported search backend name.
var ErrUnknownBackend = errors.New("unknown search backend")

// Searcher finds license files and copyright lines.
type Searcher interface {
	// FindLicenseFiles returns the regular files under root whose name contains
	// the pattern, ignoring case, in lexical order.
	FindLicenseFiles(ctx context.Context, root string) ([]string, error)
	// Grep returns every line containing the marker across paths, in path order,
	// each terminated by a newline.
	Grep(ctx context.Context, paths []string) (string, error)
}

// Options configures a Searcher.
type Options struct {
	Pattern string
	Marker  string
}

func (o Options) withDefaults() Options {
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	return o
}

// New returns the searcher for backend.
func New(backend string, opts Options) (Searcher, error) {
	opts = opts.withDefaults()
	switch backend {
	case BackendExec:
		return &Exec{Options: opts, FindCmd: "find", GrepCmd: "grep"}, nil
	case BackendBuiltin, "":
		return &Builtin{Options: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func splitPaths(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	sort.Strings(paths)
	return paths
}
