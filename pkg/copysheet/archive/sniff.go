// Package archive detects and extracts downloaded package archives.
package archive

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format identifies an archive container/compression pair.
type Format string

const (
	FormatUnknown Format = ""
	FormatTar     Format = "tar"
	FormatTarGz   Format = "tar.gz"
	FormatTarBz2  Format = "tar.bz2"
	FormatTarXz   Format = "tar.xz"
	FormatZip     Format = "zip"
)

// tar magic lives at offset 257 of the first header block
const tarMagicOffset = 257

// Sniff determines the archive format from magic numbers, falling back to the
// extension of hint when the header is inconclusive.
func Sniff(r io.ReadSeeker, hint string) (Format, error) {
	header := make([]byte, tarMagicOffset+8)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return FormatUnknown, err
	}
	header = header[:n]

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, err
	}

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		return FormatTarGz, nil

	case len(header) >= 3 && string(header[:3]) == "BZh":
		return FormatTarBz2, nil

	case len(header) >= 6 && bytes.Equal(header[:6], []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return FormatTarXz, nil

	case len(header) >= 4 && (string(header[:4]) == "PK\x03\x04" || string(header[:4]) == "PK\x05\x06"):
		return FormatZip, nil

	case len(header) >= tarMagicOffset+5 && string(header[tarMagicOffset:tarMagicOffset+5]) == "ustar":
		return FormatTar, nil
	}

	return formatFromName(hint), nil
}

func formatFromName(name string) Format {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return FormatTarBz2
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz
	case filepath.Ext(name) == ".zip":
		return FormatZip
	case filepath.Ext(name) == ".tar":
		return FormatTar
	}
	return FormatUnknown
}

// FolderName returns the extraction folder for an archive filename: the text
// before the first ".". Names starting with "." keep the whole filename.
// Names that do not resolve to a child directory ("", ".", "..", anything
// with a separator) yield "".
func FolderName(filename string) string {
	folder := filename
	if i := strings.Index(filename, "."); i > 0 {
		folder = filename[:i]
	}
	if folder == "." || folder == ".." || filepath.Base(folder) != folder {
		return ""
	}
	return folder
}
