package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"socialfeed/pkg/model"

	"github.com/bradfitz/gomemcache/memcache"
)

func MemCachedClient(address string, port int) *memcache.Client {
	uri := fmt.Sprintf("%s:%d", address, port)
	client := memcache.New(uri)
	client.MaxIdleConns = 1000
	return client
}

// Cache is the subset of *memcache.Client used by CachedStore.
type Cache interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

var _ Cache = (*memcache.Client)(nil)

// CachedStore puts a memcached read-through, write-through cache in front of
// another store. Cache failures are logged and never fail the operation.
type CachedStore struct {
	next   DocumentStore
	client Cache
	key    string
	logger *slog.Logger
}

var _ DocumentStore = (*CachedStore)(nil)

func NewCachedStore(next DocumentStore, client Cache, key string, logger *slog.Logger) *CachedStore {
	if key == "" {
		key = DefaultDocumentKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, client: client, key: key + ":document", logger: logger}
}

func (s *CachedStore) Load(ctx context.Context) (model.Document, error) {
	item, err := s.client.Get(s.key)
	if err == nil {
		var doc model.Document
		if err := json.Unmarshal(item.Value, &doc); err == nil {
			s.logger.Debug("document cache hit", "key", s.key)
			return normalize(doc), nil
		}
		s.logger.Warn("error parsing cached document", "key", s.key)
	} else if !errors.Is(err, memcache.ErrCacheMiss) {
		s.logger.Warn("error reading document from memcached", "msg", err.Error())
	}

	doc, err := s.next.Load(ctx)
	if err != nil {
		return model.Document{}, err
	}
	s.put(doc)
	return doc, nil
}

func (s *CachedStore) Save(ctx context.Context, doc model.Document) error {
	if err := s.next.Save(ctx, doc); err != nil {
		// drop the cached copy so the next load reads the source
		if derr := s.client.Delete(s.key); derr != nil && !errors.Is(derr, memcache.ErrCacheMiss) {
			s.logger.Warn("error invalidating cached document", "msg", derr.Error())
		}
		return err
	}
	s.put(doc)
	return nil
}

func (s *CachedStore) put(doc model.Document) {
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("error converting document to json", "msg", err.Error())
		return
	}
	if err := s.client.Set(&memcache.Item{Key: s.key, Value: data}); err != nil {
		s.logger.Warn("error writing document to memcached", "msg", err.Error())
	}
}
