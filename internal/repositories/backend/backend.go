// Package backend opens the store selected by STORE_DRIVER.
package backend

import (
	"context"
	"errors"
	"fmt"

	"casamento/internal/config"
	"casamento/internal/repositories"
	"casamento/internal/repositories/firestoredb"
	"casamento/internal/repositories/memory"

	"go.uber.org/zap"
)

// Open connects to the configured store. Postgres schemas are migrated on
// open.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repositories.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := repositories.InitDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := repositories.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))
		return repositories.NewPostgresStore(db), nil

	case config.StoreFirestore:
		client, err := firestoredb.NewClient(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		log.Info("connected to firestore", zap.String("project", cfg.Firestore.ProjectID))
		return firestoredb.New(client).Repositories(), nil

	case config.StoreMemory:
		if config.IsProduction() {
			return nil, errors.New("the memory store is not allowed in production")
		}
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.New().Repositories(), nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
