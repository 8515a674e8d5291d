package store

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finresearch/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Save_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := record("TCS", model.Q1, 2024, 0.9)

	mock.ExpectExec(`INSERT INTO research_results .* ON CONFLICT \(company, quarter, year\) DO UPDATE`).
		WithArgs("TCS", "Q1", 2024, pgxmock.AnyArg(), rec.SavedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rec := record("Wipro", model.Q2, 2024, 0.8)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM research_results WHERE company = \$1`).
		WithArgs("Wipro", "Q2", 2024).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(data))

	got, err := s.Load(context.Background(), rec.Period())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM research_results`).
		WithArgs("Cyient", "Q4", 2023).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.Load(context.Background(), model.Period{Company: "Cyient", Quarter: model.Q4, Year: 2023})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAll_SkipsMalformed(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	good, err := json.Marshal(record("TCS", model.Q1, 2024))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM research_results ORDER BY`).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow(good).
			AddRow([]byte("garbage")))

	all, err := s.GetAll(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "TCS", all[0].Company)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM research_results`).
		WithArgs("TCS", "Q1", 2024).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := s.Delete(context.Background(), model.Period{Company: "TCS", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
