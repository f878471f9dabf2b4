package cart

import (
	"errors"
	"os"
	"path/filepath"
)

// Namespace 持久化键名，对应浏览器端的 localStorage key
const Namespace = "cart-storage"

// Persister 整库读写。没有细粒度更新：快照整个写回，
// 并发写者之间 last-write-wins（接受的策略，不做协调）。
type Persister interface {
	Load() ([]byte, error)
	Save([]byte) error
}

// FilePersister 把快照存成 <dir>/<namespace>.json
type FilePersister struct {
	path string
}

func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilePersister{path: filepath.Join(dir, Namespace+".json")}, nil
}

func (f *FilePersister) Load() ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

func (f *FilePersister) Save(b []byte) error {
	return os.WriteFile(f.path, b, 0o600)
}
