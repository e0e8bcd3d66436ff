package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"socialfeed/pkg/model"
)

// JSONFileStore keeps the document in a single JSON file. Saves go through a
// temporary file and a rename so a reader never sees a partial document.
type JSONFileStore struct {
	FilePath string
	mu       sync.Mutex
}

var _ DocumentStore = (*JSONFileStore)(nil)

func NewJSONFileStore(filePath string) (*JSONFileStore, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, model.NewStorageError("init", err)
	}
	return &JSONFileStore{FilePath: filePath}, nil
}

func (s *JSONFileStore) Load(ctx context.Context) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	return normalize(doc), nil
}

func (s *JSONFileStore) Save(ctx context.Context, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return model.NewStorageError("save", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.FilePath), filepath.Base(s.FilePath)+".*.tmp")
	if err != nil {
		return model.NewStorageError("save", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return model.NewStorageError("save", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return model.NewStorageError("save", err)
	}
	if err := tmp.Close(); err != nil {
		return model.NewStorageError("save", err)
	}
	if err := os.Rename(tmp.Name(), s.FilePath); err != nil {
		return model.NewStorageError("save", err)
	}
	return nil
}
