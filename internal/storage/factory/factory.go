package factory

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/es"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/pg"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/server"
)

// Storage is what a running service needs from the persistence layer.
type Storage struct {
	Store   storage.Store
	Health  *server.CompositeHealthChecker
	History *es.HistoryIndexer
}

// New creates the store selected by cfg and, when configured, the history indexer.
func New(ctx context.Context, cfg *StorageConfig) (*Storage, error) {
	s := Storage{Health: server.NewCompositeHealthChecker()}

	switch cfg.Type {
	case storage.PG:
		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}
		store, err := pg.NewStorer(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		s.Store = store
		s.Health.Add(pg.NewHealthChecker(pool))

	case storage.InMem:
		s.Store = in_mem.NewInMemStorer()
		s.Health.Add(server.NewOkHealthChecker())

	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedStorer), cfg.Type)
	}

	if cfg.History != nil {
		history, err := es.NewHistoryIndexer(ctx, *cfg.History)
		if err != nil {
			s.Store.Close()
			return nil, fmt.Errorf("failed to create history indexer: %w", err)
		}
		s.History = history
		s.Health.Add(history)
	}
	return &s, nil
}
