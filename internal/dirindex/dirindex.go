// Package dirindex enumerates the image files of a directory and tracks the
// current viewing position. All navigation wraps at directory bounds.
package dirindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filmstrip/internal/domain"
)

// imageExtensions are the file types the decode workers understand.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Index is the directory listing plus the current position. It is not safe
// for concurrent use; only the render thread touches it.
type Index struct {
	dir     string
	entries []string // absolute paths, sorted by file name
	pos     int
}

// New creates an index for dir. The listing is empty until UpdateDirectory
// is called.
func New(dir string) *Index {
	return &Index{dir: dir}
}

// Dir returns the directory this index enumerates.
func (ix *Index) Dir() string { return ix.dir }

// Len returns the number of listed images.
func (ix *Index) Len() int { return len(ix.entries) }

// UpdateDirectory re-enumerates the directory. The position is preserved when
// the current file is still listed, otherwise it resets to the first entry.
func (ix *Index) UpdateDirectory() error {
	listing, err := os.ReadDir(ix.dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", ix.dir, err)
	}

	current := ix.currentPath()

	entries := make([]string, 0, len(listing))
	for _, de := range listing {
		if de.IsDir() {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		entries = append(entries, filepath.Join(ix.dir, de.Name()))
	}
	sort.Strings(entries)

	ix.entries = entries
	ix.pos = 0
	if current != "" {
		for i, p := range entries {
			if p == current {
				ix.pos = i
				break
			}
		}
	}
	return nil
}

// CurrentFilePath returns the absolute path of the current entry, or
// ErrEmptyDirectory when nothing is listed.
func (ix *Index) CurrentFilePath() (string, error) {
	if len(ix.entries) == 0 {
		return "", domain.ErrEmptyDirectory
	}
	return ix.entries[ix.pos], nil
}

// CurrentFilename returns the file name component of the current entry, or
// the empty string when nothing is listed.
func (ix *Index) CurrentFilename() string {
	if len(ix.entries) == 0 {
		return ""
	}
	return filepath.Base(ix.entries[ix.pos])
}

func (ix *Index) currentPath() string {
	if len(ix.entries) == 0 {
		return ""
	}
	return ix.entries[ix.pos]
}

// Jump moves the position by offset entries, wrapping in both directions.
// Jumping in an empty listing is a no-op; the subsequent load reports the
// error.
func (ix *Index) Jump(offset int) {
	n := len(ix.entries)
	if n == 0 {
		return
	}
	ix.pos = ((ix.pos+offset)%n + n) % n
}

// SetCurrent moves the position to the entry with the given absolute path.
// Returns ErrNotFound when the path is not listed.
func (ix *Index) SetCurrent(path string) error {
	for i, p := range ix.entries {
		if p == path {
			ix.pos = i
			return nil
		}
	}
	return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
}

// PathAt returns the path offset entries away from the current position,
// wrapping at bounds. ok is false when the listing is empty or the offset
// folds back onto the current entry.
func (ix *Index) PathAt(offset int) (string, bool) {
	n := len(ix.entries)
	if n == 0 {
		return "", false
	}
	i := ((ix.pos+offset)%n + n) % n
	if i == ix.pos && offset != 0 {
		return "", false
	}
	return ix.entries[i], true
}

// Contains reports whether the path is in the current listing.
func (ix *Index) Contains(path string) bool {
	for _, p := range ix.entries {
		if p == path {
			return true
		}
	}
	return false
}

// Distance returns the wrapped index distance between path and the current
// position. Paths not in the listing report a distance larger than any listed
// entry's, so eviction drops them first.
func (ix *Index) Distance(path string) int {
	n := len(ix.entries)
	for i, p := range ix.entries {
		if p != path {
			continue
		}
		d := i - ix.pos
		if d < 0 {
			d = -d
		}
		if wrapped := n - d; wrapped < d {
			d = wrapped
		}
		return d
	}
	return n + 1
}
