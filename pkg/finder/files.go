package finder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/ritzau/include-cycles/pkg/logging"
)

// DiscoveryError reports that the root directory cannot be enumerated at all
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering files under %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// SourceFile is one discovered file. Path is what was found on disk, Rel is
// the slash-separated path relative to the discovery root.
type SourceFile struct {
	Path string
	Rel  string
}

// Matcher decides which file names are relevant and which paths are excluded
type Matcher struct {
	patterns []glob.Glob
	excludes []string
}

// NewMatcher compiles file-type patterns such as "*.cpp". Patterns are matched
// against the base name only.
func NewMatcher(fileTypes, excludeDirs []string) (*Matcher, error) {
	if len(fileTypes) == 0 {
		return nil, errors.New("no file type patterns given")
	}

	m := &Matcher{}
	for _, pattern := range fileTypes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, g)
	}
	for _, ex := range excludeDirs {
		if ex != "" {
			m.excludes = append(m.excludes, ex)
		}
	}
	return m, nil
}

// MatchName reports whether a base name matches any file-type pattern
func (m *Matcher) MatchName(name string) bool {
	for _, g := range m.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Excluded reports whether any exclude string occurs anywhere in the path
// relative to the discovery root. This is a plain substring test: "test"
// also excludes "latest/".
func (m *Matcher) Excluded(path string) bool {
	for _, ex := range m.excludes {
		if strings.Contains(path, ex) {
			return true
		}
	}
	return false
}

// Match reports whether the file at rel, a path relative to the discovery
// root, is a relevant non-excluded file
func (m *Matcher) Match(rel string) bool {
	return m.MatchName(path.Base(rel)) && !m.Excluded(rel)
}

// FindSourceFiles enumerates matching files under root in discovery order.
//
// The walk uses an explicit queue of directories rather than recursion.
// os.ReadDir yields entries in lexical order, so the result is
// stable for an unchanged tree. Subdirectories that cannot be read are
// logged and skipped; only an unusable root yields a DiscoveryError.
func FindSourceFiles(root string, m *Matcher) ([]SourceFile, error) {
	logger := logging.New("finder")

	info, err := os.Stat(root)
	if err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	var files []SourceFile
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == root {
				return nil, &DiscoveryError{Root: root, Err: err}
			}
			logger.Warn("skipping unreadable directory", "path", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			rel := relSlash(root, full)
			if entry.IsDir() {
				// Everything below an excluded directory contains the same substring
				if !m.Excluded(rel) {
					queue = append(queue, full)
				}
				continue
			}
			if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
				continue
			}
			if !m.Match(rel) {
				continue
			}
			files = append(files, SourceFile{Path: full, Rel: rel})
		}
	}

	logger.Debug("discovery finished", "root", root, "files", len(files))
	return files, nil
}

func relSlash(root, full string) string {
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return filepath.ToSlash(full)
	}
	return filepath.ToSlash(rel)
}

// Dirs returns root plus every non-excluded directory below it, in walk order
func Dirs(root string, m *Matcher) ([]string, error) {
	if _, err := os.ReadDir(root); err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}

	dirs := []string{root}
	for i := 0; i < len(dirs); i++ {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			full := filepath.Join(dirs[i], entry.Name())
			if m.Excluded(relSlash(root, full)) {
				continue
			}
			dirs = append(dirs, full)
		}
	}
	return dirs, nil
}
