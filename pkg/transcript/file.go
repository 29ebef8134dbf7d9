package transcript

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// File is a transcript read from disk, ready to upload.
type File struct {
	Path    string
	Name    string
	Size    int64
	Content string
}

// ReadFile reads a transcript in full. A UTF-8 or UTF-16 byte order mark selects
// the decoding and is stripped; files without one are read as UTF-8.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	content, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &File{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    int64(len(raw)),
		Content: content,
	}, nil
}

// Decode converts raw file bytes to a UTF-8 string, honouring a leading BOM.
func Decode(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), decoder))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Expand replaces each directory in paths with the .txt files directly inside it,
// sorted by name. Plain files are kept as given so the caller can report them.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, entry := range entries {
			if entry.IsDir() || ValidateExtension(entry.Name()) != nil {
				continue
			}
			files = append(files, filepath.Join(p, entry.Name()))
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}
