package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finresearch/internal/model"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	st, err := NewFile(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestFileStore_SaveLoadOverwrite(t *testing.T) {
	t.Parallel()
	st := newTestFileStore(t)
	ctx := context.Background()

	rec := record("Tech Mahindra", model.Q1, 2024, 0.9)
	require.NoError(t, st.Save(ctx, rec))
	assert.FileExists(t, filepath.Join(st.dir, "tech-mahindra_Q1_2024.json"))

	got, err := st.Load(ctx, rec.Period())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 0.9, got.ExtractedData[model.TotalIncome].Confidence)
	assert.True(t, rec.SavedAt.Equal(got.SavedAt))

	updated := record("Tech Mahindra", model.Q1, 2024, 0.5, 0.6)
	require.NoError(t, st.Save(ctx, updated))
	all, err := st.GetAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].ExtractedData, 2)
}

func TestFileStore_LoadMissing(t *testing.T) {
	t.Parallel()
	st := newTestFileStore(t)

	got, err := st.Load(context.Background(), model.Period{Company: "Wipro", Quarter: model.Q4, Year: 2023})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_MalformedTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	st := newTestFileStore(t)
	ctx := context.Background()

	p := model.Period{Company: "TCS", Quarter: model.Q2, Year: 2024}
	require.NoError(t, os.WriteFile(filepath.Join(st.dir, "tcs_Q2_2024.json"), []byte("{oops"), 0o644))
	require.NoError(t, st.Save(ctx, record("Infosys", model.Q2, 2024)))

	got, err := st.Load(ctx, p)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := st.GetAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Infosys", all[0].Company)
}

func TestFileStore_GetAllFilterAndDelete(t *testing.T) {
	t.Parallel()
	st := newTestFileStore(t)
	ctx := context.Background()

	for _, r := range []*model.ResearchRecord{
		record("TCS", model.Q2, 2024),
		record("TCS", model.Q1, 2024),
		record("Infosys", model.Q1, 2024),
	} {
		require.NoError(t, st.Save(ctx, r))
	}

	tcs, err := st.GetAll(ctx, Filter{Company: "tcs"})
	require.NoError(t, err)
	require.Len(t, tcs, 2)
	assert.Equal(t, model.Q1, tcs[0].Quarter)

	ok, err := st.Delete(ctx, model.Period{Company: "TCS", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Delete(ctx, model.Period{Company: "TCS", Quarter: model.Q1, Year: 2024})
	require.NoError(t, err)
	assert.False(t, ok)

	s, err := SummaryOf(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalRecords)
}
