package mapper

import (
	"fmt"

	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/ifuryst/feedsync/internal/config"
)

// The client must keep satisfying the mapper's store contract.
var _ store = (*surrealdb.DB)(nil)

// Connect opens the process-wide SurrealDB client backing the identifier map.
// Constructed once at startup and reused across batches.
func Connect(cfg *config.MapperConfig) (*surrealdb.DB, error) {
	db, err := surrealdb.New(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mapping store: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.Signin(map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to authenticate to mapping store: %w", err)
		}
	}

	if _, err := db.Use(cfg.Namespace, cfg.Database); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to select mapping namespace: %w", err)
	}

	return db, nil
}
