// Package library indexes music folders and decides which songs of a
// source folder are missing from a destination library.
package library

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/slipstream/w4dj"
	"golang.org/x/exp/slices"
)

// Extensions are the file types taking part in a sync, lower case and
// without the dot.
var Extensions = []string{"mp3", "flac", "ncm"}

type Entry struct {
	Stem string
	Path string
	Ext  string
	Size int64
}

// IsContainer reports whether the entry must be decoded rather than copied.
func (e Entry) IsContainer() bool {
	return e.Ext == "ncm"
}

// Library maps file stems to entries. Songs are identified by stem only, a
// decoded container and its source share the same stem.
type Library map[string]Entry

// Scan walks root recursively and indexes every supported file. When two
// files share a stem the one visited last wins. Unreadable subdirectories
// are logged and skipped.
func Scan(root string, log w4dj.Logger) (Library, error) {
	lib := Library{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			log.WithError(err).Warnf("skipping unreadable path %s", path)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !slices.Contains(Extensions, ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.WithError(err).Warnf("skipping file without info %s", path)
			return nil
		}

		stem := strings.TrimSuffix(d.Name(), filepath.Ext(path))
		if prev, ok := lib[stem]; ok {
			log.Debugf("%s replaces %s for %s", path, prev.Path, stem)
		}

		lib[stem] = Entry{Stem: stem, Path: path, Ext: ext, Size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed scanning %s: %w", root, err)
	}

	return lib, nil
}

// Sorted returns the entries ordered by stem.
func (l Library) Sorted() []Entry {
	out := make([]Entry, 0, len(l))
	for _, e := range l {
		out = append(out, e)
	}

	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Stem, b.Stem) })
	return out
}
