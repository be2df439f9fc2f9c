// internal/output/store.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// Store is the storage collaborator: an append-only history capped to the
// most recent entries, and accumulated stats
type Store interface {
	AppendHistory(ctx context.Context, entry types.HistoryEntry) error
	AddStats(ctx context.Context, delta types.StatsDelta) error
	// History returns entries oldest first
	History(ctx context.Context) ([]types.HistoryEntry, error)
	Stats(ctx context.Context) (types.StatsDelta, error)
	Close() error
}

// NewStore opens the store selected by config
func NewStore(ctx context.Context, config StoreConfig, logger utils.Logger) (Store, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid storage configuration")
	}

	var (
		store Store
		err   error
	)
	switch config.Type {
	case StoreMemory:
		store = NewMemoryStore(config.HistoryLimit)
	case StoreJSON:
		store, err = NewJSONStore(config.Path, config.HistoryLimit)
	case StoreSQLite:
		store, err = NewSQLiteStore(ctx, config)
	case StorePostgreSQL:
		store, err = NewPostgreSQLStore(ctx, config)
	case StoreMySQL:
		store, err = NewMySQLStore(ctx, config)
	case StoreMongoDB:
		store, err = NewMongoStore(ctx, config)
	default:
		err = fmt.Errorf("unsupported store type: %s", config.Type)
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodePersistenceFailed, "failed to open store").
			WithContext("type", string(config.Type))
	}

	utils.NewModuleLogger(logger, "storage").WithField("type", config.Type).Info("store opened")
	return store, nil
}
