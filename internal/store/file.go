package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gosimple/slug"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/fsutil"
	"github.com/sells-group/finresearch/internal/model"
)

// FileStore keeps one JSON document per period in a directory.
type FileStore struct {
	dir string
}

// NewFile returns a FileStore rooted at dir.
func NewFile(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, eris.New("file store: empty directory")
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(p model.Period) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%d.json", slug.Make(p.Company), p.Quarter, p.Year))
}

func (s *FileStore) Migrate(_ context.Context) error {
	return eris.Wrap(os.MkdirAll(s.dir, 0o755), "file store: migrate")
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Save(_ context.Context, rec *model.ResearchRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return eris.Wrap(err, "file store: encode record")
	}
	if err := fsutil.WriteFileAtomic(s.path(rec.Period()), data, 0o644); err != nil {
		return eris.Wrapf(err, "file store: save %s", rec.Period())
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, p model.Period) (*model.ResearchRecord, error) {
	rec, err := s.read(s.path(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// read returns nil, nil for a malformed document.
func (s *FileStore) read(path string) (*model.ResearchRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, eris.Wrapf(err, "file store: read %s", path)
	}
	var rec model.ResearchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		zap.L().Warn("file store: ignoring malformed record", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) GetAll(_ context.Context, f Filter) ([]model.ResearchRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file store: list %s", s.dir)
	}

	var out []model.ResearchRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		rec, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if rec != nil && f.Match(rec) {
			out = append(out, *rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, p model.Period) (bool, error) {
	err := os.Remove(s.path(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "file store: delete %s", p)
	}
	zap.L().Info("file store: deleted record", zap.Stringer("period", p))
	return true, nil
}
