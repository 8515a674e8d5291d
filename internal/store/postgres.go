package store

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finresearch/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres connects a pool to connString.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			cfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			cfg.MinConns = poolCfg.MinConns
		}
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_results (
	company  TEXT NOT NULL,
	quarter  TEXT NOT NULL,
	year     INTEGER NOT NULL,
	record   JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (company, quarter, year)
);

CREATE INDEX IF NOT EXISTS idx_research_results_company ON research_results (lower(company));
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *model.ResearchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: encode record")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO research_results (company, quarter, year, record, saved_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (company, quarter, year) DO UPDATE SET record = EXCLUDED.record, saved_at = EXCLUDED.saved_at`,
		rec.Company, string(rec.Quarter), rec.Year, data, rec.SavedAt,
	)
	return eris.Wrapf(err, "postgres: save %s", rec.Period())
}

func (s *PostgresStore) Load(ctx context.Context, p model.Period) (*model.ResearchRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM research_results WHERE company = $1 AND quarter = $2 AND year = $3`,
		p.Company, string(p.Quarter), p.Year,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load %s", p)
	}
	return decodeRecord(data), nil
}

func (s *PostgresStore) GetAll(ctx context.Context, f Filter) ([]model.ResearchRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM research_results ORDER BY company, year, quarter`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []model.ResearchRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		if rec := decodeRecord(data); rec != nil && f.Match(rec) {
			out = append(out, *rec)
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) Delete(ctx context.Context, p model.Period) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM research_results WHERE company = $1 AND quarter = $2 AND year = $3`,
		p.Company, string(p.Quarter), p.Year,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete %s", p)
	}
	return tag.RowsAffected() > 0, nil
}
