package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	recordExt = ".json"
	tempExt   = ".tmp"
)

// FileStore keeps one file per record under dir, named "<key>.json".
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore roots the store at dir on fs. A nil fs means the OS
// filesystem. The directory is created on first write.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+recordExt)
}

// Write replaces the record through a temp file and rename so a reader
// never sees half a record.
func (s *FileStore) Write(key string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", s.dir, err)
	}

	tmp := s.path(key) + tempExt
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, s.path(key)); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Read(key string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// List returns the keys matching pattern. A missing directory holds no keys.
func (s *FileStore) List(pattern *regexp.Regexp) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	var keys []string
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		key := strings.TrimSuffix(name, recordExt)
		if pattern == nil || pattern.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Delete(key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Sweep deletes temp files left by writes that never reached the rename.
func (s *FileStore) Sweep() error {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing %s: %w", s.dir, err)
	}

	var errs []error
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), tempExt) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, info.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("deleting %s: %w", info.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *FileStore) Close() error {
	return nil
}
