package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Config selects and configures a Store driver.
type Config struct {
	Driver      string     `yaml:"driver" mapstructure:"driver" validate:"oneof=file sqlite postgres"`
	Dir         string     `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Open builds the configured Store and runs its migration.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "", "file":
		st, err = NewFile(cfg.Dir)
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, eris.Wrap(err, "store: create sqlite dir")
			}
			dsn = filepath.Join(cfg.Dir, "research.db")
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
