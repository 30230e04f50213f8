package blob

import (
	"fmt"
	"os"
	"path/filepath"
)

// FSStore keeps blobs as plain files under a root directory. Keys are
// slash-separated relative paths.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	const op = "blob.NewFSStore"
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *FSStore) Exists(path string) bool {
	info, err := os.Stat(s.abs(path))
	return err == nil && !info.IsDir()
}

func (s *FSStore) ReadAll(path string) ([]byte, error) {
	const op = "blob.FSStore.ReadAll"
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

func (s *FSStore) WriteAll(path string, data []byte) error {
	const op = "blob.FSStore.WriteAll"
	abs := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FSStore) Delete(path string) error {
	const op = "blob.FSStore.Delete"
	if err := os.Remove(s.abs(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
