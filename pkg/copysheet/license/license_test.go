package license

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeTree lays out an extracted package with two license-like files, a
// directory whose name matches the pattern, and a path with shell metacharacters.
func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"package/LICENSE":                      "MIT License\n\nCopyright (c) 2021 Example Corp\n\nPermission is hereby granted\n",
		"package/docs/third_party;license.txt": "Copyright 2019 Other $(Vendor)\ncopyright lowercase ignored",
		"package/NOTICE":                       "Copyright (c) 1999 Not A License File\n",
		"package/licenses/README":              "no marker here\n",
	}
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func searchers(t *testing.T) map[string]Searcher {
	t.Helper()
	result := map[string]Searcher{}

	builtin, err := New(BackendBuiltin, Options{})
	if err != nil {
		t.Fatal(err)
	}
	result[BackendBuiltin] = builtin

	_, findErr := exec.LookPath("find")
	_, grepErr := exec.LookPath("grep")
	if findErr == nil && grepErr == nil {
		e, err := New(BackendExec, Options{})
		if err != nil {
			t.Fatal(err)
		}
		result[BackendExec] = e
	}
	return result
}

func TestFindLicenseFiles(t *testing.T) {
	root := writeTree(t)
	expected := []string{
		filepath.Join(root, "package", "LICENSE"),
		filepath.Join(root, "package", "docs", "third_party;license.txt"),
	}

	for name, s := range searchers(t) {
		t.Run(name, func(t *testing.T) {
			paths, err := s.FindLicenseFiles(context.Background(), root)
			if err != nil {
				t.Fatalf("FindLicenseFiles failed: %v", err)
			}
			if diff := cmp.Diff(expected, paths); diff != "" {
				t.Errorf("paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindLicenseFilesNone(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.js"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for name, s := range searchers(t) {
		t.Run(name, func(t *testing.T) {
			paths, err := s.FindLicenseFiles(context.Background(), root)
			if err != nil {
				t.Fatalf("FindLicenseFiles failed: %v", err)
			}
			if len(paths) != 0 {
				t.Errorf("Expected no paths, got %v", paths)
			}
		})
	}
}

func TestFindLicenseFilesRelativeDashRoot(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.MkdirAll("-tree", 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("-tree", "LICENSE"), []byte("Copyright 2020 Foo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for name, s := range searchers(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.FindLicenseFiles(context.Background(), "-tree")
			if err != nil {
				t.Fatalf("FindLicenseFiles failed: %v", err)
			}
			if len(got) != 1 || !strings.HasSuffix(got[0], filepath.Join("-tree", "LICENSE")) {
				t.Errorf("Expected -tree/LICENSE, got %v", got)
			}
		})
	}
}

func TestGrep(t *testing.T) {
	root := writeTree(t)
	paths := []string{
		filepath.Join(root, "package", "LICENSE"),
		filepath.Join(root, "package", "docs", "third_party;license.txt"),
		filepath.Join(root, "package", "licenses", "README"),
	}
	expected := "Copyright (c) 2021 Example Corp\nCopyright 2019 Other $(Vendor)\n"

	for name, s := range searchers(t) {
		t.Run(name, func(t *testing.T) {
			out, err := s.Grep(context.Background(), paths)
			if err != nil {
				t.Fatalf("Grep failed: %v", err)
			}
			if diff := cmp.Diff(expected, out); diff != "" {
				t.Errorf("grep output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGrepMissingFile(t *testing.T) {
	for name, s := range searchers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Grep(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
			if err == nil {
				t.Fatal("Expected error for missing file")
			}
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("ripgrep", Options{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Expected ErrUnknownBackend, got %v", err)
	}
}

func TestCustomPatternAndMarker(t *testing.T) {
	root := writeTree(t)
	s, err := New(BackendBuiltin, Options{Pattern: "notice", Marker: "(c)"})
	if err != nil {
		t.Fatal(err)
	}

	paths, err := s.FindLicenseFiles(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "package", "NOTICE")}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	out, err := s.Grep(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Copyright (c) 1999 Not A License File\n" {
		t.Errorf("unexpected output %q", out)
	}
}
