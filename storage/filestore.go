package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinbdx35/rocket-telemetry/errors"
)

// FileStore keeps artifacts as files under a base directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first write, not here.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir}
}

// Dir returns the base directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Resolve maps name to a path: absolute names are kept, relative names are
// joined to the base directory.
func (s *FileStore) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(s.dir, name)
}

// Put writes data to a temporary file next to the target and renames it into
// place.
func (s *FileStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WrapTransient(err, "FileStore", "Put", "check context")
	}

	path := s.Resolve(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.IO(err, "FileStore", "Put", "create directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", errors.IO(err, "FileStore", "Put", "create temp file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", errors.IO(err, "FileStore", "Put", "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", errors.IO(err, "FileStore", "Put", "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.IO(err, "FileStore", "Put", "close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", errors.IO(err, "FileStore", "Put", "set permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", errors.IO(err, "FileStore", "Put", "rename into place")
	}
	committed = true

	return path, nil
}

// Get reads the artifact at the resolved path.
func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "FileStore", "Get", "check context")
	}

	data, err := os.ReadFile(s.Resolve(name))
	if err != nil {
		return nil, errors.IO(err, "FileStore", "Get", "read artifact")
	}
	return data, nil
}

// List returns the .json and .csv files directly under the base directory.
// A missing directory holds no artifacts.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "FileStore", "List", "check context")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.IO(err, "FileStore", "List", "read directory")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".csv":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
