package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com/archive-1.0.tar.gz", "archive-1.0.tar.gz"},
		{"https://registry.npmjs.org/@loopback/rest/-/rest-3.3.2.tgz", "rest-3.3.2.tgz"},
		{"https://example.com/dl/pkg.zip?raw=1#top", "pkg.zip"},
		{"https://example.com/dir/", ""},
		{"pkg-1.0.tgz", "pkg-1.0.tgz"},
		{"https://example.com/pkg/..", ""},
		{"https://example.com/pkg/.", ""},
		{"https://example.com/pkg/.%2e", ""},
		{"..", ""},
		{"", ""},
	}

	for _, tt := range tests {
		result := Filename(tt.url)
		if result != tt.expected {
			t.Errorf("Filename(%q) = %q, expected %q", tt.url, result, tt.expected)
		}
	}
}

func TestDownloadFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old/pkg.tgz", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/pkg.tgz", http.StatusFound)
	})
	mux.HandleFunc("/new/pkg.tgz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "packages", "pkg.tgz")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stale content"), 0644); err != nil {
		t.Fatal(err)
	}

	d := New(Options{})
	n, err := d.Download(context.Background(), srv.URL+"/old/pkg.tgz", path)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(len("payload")) {
		t.Errorf("Expected %d bytes, got %d", len("payload"), n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected overwritten payload, got %q", data)
	}
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "pkg.tgz")
	_, err := New(Options{Rate: 100}).Download(context.Background(), srv.URL+"/pkg.tgz", path)
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("Expected ErrHTTPStatus, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no file written, stat returned %v", err)
	}
}

func TestDownloadCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Download(ctx, srv.URL+"/pkg.tgz", filepath.Join(t.TempDir(), "pkg.tgz"))
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
}
