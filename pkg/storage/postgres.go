package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"socialfeed/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool connects to Postgres and caches prepared statements per connection.
func NewPostgresPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return pool, nil
}

// PostgresDocumentStore keeps the document in a JSON column. JSON rather than
// JSONB so the key order of "users" survives.
type PostgresDocumentStore struct {
	Pool *pgxpool.Pool
	key  string
}

var _ DocumentStore = (*PostgresDocumentStore)(nil)

func NewPostgresDocumentStore(ctx context.Context, pool *pgxpool.Pool, key string) (*PostgresDocumentStore, error) {
	if key == "" {
		key = DefaultDocumentKey
	}
	s := &PostgresDocumentStore{Pool: pool, key: key}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresDocumentStore) initSchema(ctx context.Context) error {
	const q = `CREATE TABLE IF NOT EXISTS feed_documents (
		name TEXT PRIMARY KEY,
		body JSON NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.Pool.Exec(ctx, q); err != nil {
		return model.NewStorageError("init", fmt.Errorf("failed to init schema: %w", err))
	}
	return nil
}

func (s *PostgresDocumentStore) Load(ctx context.Context) (model.Document, error) {
	var body []byte
	err := s.Pool.QueryRow(ctx, "SELECT body::text FROM feed_documents WHERE name = $1", s.key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	var doc model.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.Document{}, model.NewStorageError("load", err)
	}
	return normalize(doc), nil
}

func (s *PostgresDocumentStore) Save(ctx context.Context, doc model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return model.NewStorageError("save", err)
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO feed_documents (name, body, updated_at) VALUES ($1, $2::json, CURRENT_TIMESTAMP)
		 ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = CURRENT_TIMESTAMP`,
		s.key, string(body))
	if err != nil {
		return model.NewStorageError("save", err)
	}
	return nil
}
