package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finresearch/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveLoadUpsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := record("Infosys", model.Q3, 2024, 0.95)
	require.NoError(t, st.Save(ctx, rec))

	got, err := st.Load(ctx, rec.Period())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, model.SourceAI, got.Source)

	rec.Status = model.StatusNoData
	require.NoError(t, st.Save(ctx, rec))

	all, err := st.GetAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusNoData, all[0].Status)
}

func TestSQLite_LoadMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.Load(context.Background(), model.Period{Company: "Zensar", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_MalformedRowSkipped(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO research_results (company, quarter, year, record, saved_at) VALUES ('TCS', 'Q1', 2024, 'not json', datetime('now'))`)
	require.NoError(t, err)

	got, err := st.Load(ctx, model.Period{Company: "TCS", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := st.GetAll(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_DeleteAndFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, record("TCS", model.Q1, 2024)))
	require.NoError(t, st.Save(ctx, record("Wipro", model.Q1, 2024)))

	wipro, err := st.GetAll(ctx, Filter{Company: "WIPRO"})
	require.NoError(t, err)
	assert.Len(t, wipro, 1)

	ok, err := st.Delete(ctx, model.Period{Company: "TCS", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Delete(ctx, model.Period{Company: "TCS", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := Open(ctx, Config{Driver: "file", Dir: filepath.Join(dir, "files")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fs)

	sq, err := Open(ctx, Config{Driver: "sqlite", Dir: filepath.Join(dir, "db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sq)
	require.NoError(t, sq.Close())

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.Error(t, err)
}
