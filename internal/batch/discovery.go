package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/cpgimage/internal/fsutil"
)

// Discover returns the regular files under dir whose base name matches
// pattern, sorted by path. With recursive=false only dir itself is scanned.
func Discover(dir, pattern string, recursive bool) ([]Item, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	items := []Item{}
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() || !g.Match(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			items = append(items, Item{Path: path, Stem: fsutil.Stem(path)})
		}
		return items, nil
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if g.Match(d.Name()) {
			items = append(items, Item{Path: path, Stem: fsutil.Stem(path)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// CompletedArtifacts returns the stems of files in dir matching pattern.
// A missing directory yields an empty set.
func CompletedArtifacts(dir, pattern string) (map[string]bool, error) {
	done := make(map[string]bool)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return done, nil
	}

	items, err := Discover(dir, pattern, false)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		done[item.Stem] = true
	}
	return done, nil
}
