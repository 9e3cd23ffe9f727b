package results

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"framediff/internal/fileutil"
)

const recordExt = ".json"

// Store locates and writes records below a root directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the record location for a video.
func (s *Store) Path(class, videoID string) string {
	return filepath.Join(s.root, class, videoID+recordExt)
}

// Exists reports whether a complete record is present for the video.
func (s *Store) Exists(class, videoID string) (bool, error) {
	info, err := os.Stat(s.Path(class, videoID))
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat record: %w", err)
}

// Save writes rec atomically to its path and returns that path.
func (s *Store) Save(rec Record) (string, error) {
	if strings.TrimSpace(rec.Class) == "" || strings.TrimSpace(rec.VideoID) == "" {
		return "", errors.New("save record: class and video id required")
	}
	data, err := rec.Marshal()
	if err != nil {
		return "", err
	}
	path := s.Path(rec.Class, rec.VideoID)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save record %s: %w", path, err)
	}
	return path, nil
}

// SaveDocument writes doc atomically to path.
func SaveDocument(path string, doc Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save document %s: %w", path, err)
	}
	return nil
}

// List returns every record file below the root, sorted. A missing root
// yields no paths.
func (s *Store) List() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return fs.SkipAll
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if fileutil.IsTempFile(name) || !strings.EqualFold(filepath.Ext(name), recordExt) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk results: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
