package store

import (
	"context"
	"database/sql"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/finresearch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS research_results (
	company  TEXT NOT NULL,
	quarter  TEXT NOT NULL,
	year     INTEGER NOT NULL,
	record   TEXT NOT NULL,
	saved_at DATETIME NOT NULL,
	PRIMARY KEY (company, quarter, year)
);

CREATE INDEX IF NOT EXISTS idx_research_results_company ON research_results(company COLLATE NOCASE);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, rec *model.ResearchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_results (company, quarter, year, record, saved_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (company, quarter, year) DO UPDATE SET record = excluded.record, saved_at = excluded.saved_at`,
		rec.Company, string(rec.Quarter), rec.Year, string(data), rec.SavedAt,
	)
	return eris.Wrapf(err, "sqlite: save %s", rec.Period())
}

func (s *SQLiteStore) Load(ctx context.Context, p model.Period) (*model.ResearchRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM research_results WHERE company = ? AND quarter = ? AND year = ?`,
		p.Company, string(p.Quarter), p.Year,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load %s", p)
	}
	return decodeRecord([]byte(data)), nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, f Filter) ([]model.ResearchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM research_results ORDER BY company, year, quarter`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ResearchRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if rec := decodeRecord([]byte(data)); rec != nil && f.Match(rec) {
			out = append(out, *rec)
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) Delete(ctx context.Context, p model.Period) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM research_results WHERE company = ? AND quarter = ? AND year = ?`,
		p.Company, string(p.Quarter), p.Year,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete %s", p)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// decodeRecord returns nil for a document that does not decode.
func decodeRecord(data []byte) *model.ResearchRecord {
	var rec model.ResearchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		zap.L().Warn("store: ignoring malformed record", zap.Error(err))
		return nil
	}
	return &rec
}
