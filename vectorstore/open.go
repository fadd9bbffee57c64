package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"icarus-backend/config"
)

// New builds the backend named by cfg.Backend ("local" or "pgvector"). The
// returned close func releases the store and any pool it opened.
func New(ctx context.Context, cfg config.VectorConfig, embedder Embedder) (Store, func(), error) {
	switch cfg.Backend {
	case "", "local":
		s, err := NewLocalStore(cfg.Dir, embedder)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "pgvector":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("VECTOR_DATABASE_URL is required for the pgvector backend")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect vector database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping vector database: %w", err)
		}
		s, err := NewPGStore(pool, embedder, cfg.Dimensions)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %s", cfg.Backend)
	}
}
