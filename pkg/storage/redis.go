package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"socialfeed/pkg/model"

	"github.com/redis/go-redis/v9"
)

func RedisClient(address string, port int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", address, port),
		Password: "",
		DB:       0, // use default DB
	})
}

// RedisDocumentStore keeps the JSON document under a single key.
type RedisDocumentStore struct {
	client *redis.Client
	key    string
}

var _ DocumentStore = (*RedisDocumentStore)(nil)

func NewRedisDocumentStore(client *redis.Client, key string) *RedisDocumentStore {
	if key == "" {
		key = DefaultDocumentKey
	}
	return &RedisDocumentStore{client: client, key: key + ":document"}
}

func (s *RedisDocumentStore) Load(ctx context.Context) (model.Document, error) {
	result, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	var doc model.Document
	if err := json.Unmarshal(result, &doc); err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	return normalize(doc), nil
}

func (s *RedisDocumentStore) Save(ctx context.Context, doc model.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return model.NewStorageError("save", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return model.NewStorageError("save", err)
	}
	return nil
}
