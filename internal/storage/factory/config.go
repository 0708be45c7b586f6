package factory

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/es"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/pg"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/config/env"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/utils"
)

type StorageConfig struct {
	storage.Type
	Pg *pg.PoolConfig
	// History is optional; nil disables the Elasticsearch history mirror.
	History *es.ClientConfig
}

func LoadEnv() (*StorageConfig, error) {
	storageType := (storage.Type)(os.Getenv("STORAGE_TYPE"))
	if storageType == "" {
		slog.Error("STORAGE_TYPE environment variable is not set")
		return nil, fmt.Errorf("STORAGE_TYPE environment variable is not set")
	}
	if storageType != storage.PG && storageType != storage.InMem {
		slog.Error("Invalid STORAGE_TYPE environment variable value", "value", storageType)
		return nil, fmt.Errorf(
			"invalid STORAGE_TYPE environment variable value: %s, expected one of %v",
			storageType,
			[]storage.Type{storage.PG, storage.InMem})
	}

	var pgCfg *pg.PoolConfig
	if storageType == storage.PG {
		pgCfg = &pg.PoolConfig{
			ConnStr: os.Getenv("PG_CONNECTION_STRING"),
		}
		if pgCfg.ConnStr == "" {
			slog.Error("PostgreSQL connection string is not set")
			return nil, fmt.Errorf("PostgreSQL connection string is not set")
		}
		maxConns, err := env.Int("PG_MAX_CONNS", 0)
		if err != nil {
			return nil, err
		}
		pgCfg.MaxConns = int32(maxConns)
	}

	var historyCfg *es.ClientConfig
	if addresses := utils.SplitTrim(os.Getenv("HISTORY_ES_ADDRESSES"), ","); len(addresses) > 0 {
		historyCfg = &es.ClientConfig{
			Addresses: addresses,
			IndexName: env.String("HISTORY_ES_INDEX", "grading_history"),
			Username:  os.Getenv("HISTORY_ES_USERNAME"),
			Password:  os.Getenv("HISTORY_ES_PASSWORD"),
		}
	}

	return &StorageConfig{
		Type:    storageType,
		Pg:      pgCfg,
		History: historyCfg,
	}, nil
}
