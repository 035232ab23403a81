package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// ErrUnsupportedFormat indicates the archive format could not be identified.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// ErrUnsafePath indicates a member would be written outside the destination.
var ErrUnsafePath = errors.New("archive member escapes destination")

// Extract expands the archive at src into dest and returns the detected format.
// Directory and regular-file members are written; links and devices are skipped.
func Extract(src, dest string) (Format, error) {
	f, err := os.Open(src)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	format, err := Sniff(f, src)
	if err != nil {
		return FormatUnknown, fmt.Errorf("sniff %s: %w", src, err)
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return format, err
	}

	switch format {
	case FormatZip:
		err = extractZip(src, dest)
	case FormatTar:
		err = extractTar(f, dest)
	case FormatTarGz:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(f); err == nil {
			defer gz.Close()
			err = extractTar(gz, dest)
		}
	case FormatTarBz2:
		err = extractTar(bzip2.NewReader(f), dest)
	case FormatTarXz:
		var xr *xz.Reader
		if xr, err = xz.NewReader(f); err == nil {
			err = extractTar(xr, dest)
		}
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return format, fmt.Errorf("extract %s: %w", src, err)
	}

	return format, nil
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := memberPath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		}
	}
}

func extractZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, zf := range zr.File {
		target, err := memberPath(dest, zf.Name)
		if err != nil {
			return err
		}

		info := zf.FileInfo()
		if info.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, info.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// memberPath joins name onto dest, rejecting absolute names and ".." escapes.
func memberPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	perm := mode.Perm() | 0600
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
