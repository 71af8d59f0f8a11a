package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStorage keeps one <key>.json file per entry under a cache directory.
// Validity is judged by file modification time, not by any embedded field,
// so an expired file simply gets overwritten by the next Put. Writes go
// through a temp file and rename so concurrent readers never observe a
// partial payload.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStorage) Read(key string) ([]byte, time.Time, error) {
	path := f.path(key)

	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, ErrNotFound
	}

	return data, info.ModTime(), nil
}

func (f *FileStorage) Write(key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, key+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	// Last writer wins; rename is atomic on the same filesystem.
	return os.Rename(tmp.Name(), f.path(key))
}
