// Package cache stores upstream responses on disk with a time-to-live.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/fsutil"
)

// Params identifies a request. Equal params map to the same entry
// regardless of key order.
type Params map[string]any

type entry struct {
	Timestamp   time.Time       `json:"timestamp"`
	QueryParams Params          `json:"query_params"`
	Response    json.RawMessage `json:"response"`
}

// Stats counts lookups since the cache was opened.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total_requests"`
	HitRate float64 `json:"hit_rate_percent"`
	Entries int     `json:"entries"`
}

// FileCache keeps one JSON file per entry under a directory. Entries older
// than the TTL are deleted on read and reported as misses.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	hits   int64
	misses int64
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) { c.now = now }
}

// New opens (creating if needed) a cache directory.
func New(dir string, ttl time.Duration, opts ...Option) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	c := &FileCache{dir: dir, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Key hashes params into the entry's file stem.
func Key(p Params) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "cache: encode params")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the stored response for p if present and fresh.
func (c *FileCache) Get(p Params) (json.RawMessage, bool) {
	key, err := Key(p)
	if err != nil {
		c.count(false)
		return nil, false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("cache: read entry", zap.String("key", key), zap.Error(err))
		}
		c.count(false)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		zap.L().Warn("cache: corrupt entry, removing", zap.String("key", key), zap.Error(err))
		c.remove(key)
		c.count(false)
		return nil, false
	}
	if c.now().Sub(e.Timestamp) > c.ttl {
		zap.L().Debug("cache: entry expired", zap.String("key", key))
		c.remove(key)
		c.count(false)
		return nil, false
	}

	c.count(true)
	return e.Response, true
}

// Set stores response for p, stamped with the current time.
func (c *FileCache) Set(p Params, response any) error {
	key, err := Key(p)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return eris.Wrap(err, "cache: encode response")
	}
	data, err := json.Marshal(entry{Timestamp: c.now().UTC(), QueryParams: p, Response: raw})
	if err != nil {
		return eris.Wrap(err, "cache: encode entry")
	}
	return fsutil.WriteFileAtomic(c.path(key), data, 0o644)
}

// Clear removes every entry and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	files, err := c.files()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, eris.Wrapf(err, "cache: remove %s", f)
		}
		n++
	}
	zap.L().Info("cache: cleared", zap.Int("entries", n))
	return n, nil
}

// Stats reports hit and miss counters plus the number of stored entries.
func (c *FileCache) Stats() Stats {
	c.mu.Lock()
	s := Stats{Hits: c.hits, Misses: c.misses}
	c.mu.Unlock()

	s.Total = s.Hits + s.Misses
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total) * 100
	}
	if files, err := c.files(); err == nil {
		s.Entries = len(files)
	}
	return s
}

func (c *FileCache) files() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "cache: list %s", c.dir)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, filepath.Join(c.dir, e.Name()))
		}
	}
	return out, nil
}

func (c *FileCache) remove(key string) {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("cache: remove entry", zap.String("key", key), zap.Error(err))
	}
}

func (c *FileCache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}
