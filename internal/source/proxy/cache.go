package proxy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"tileserv/internal/tiles"
)

// zstdDec is a package-level decoder, concurrent-safe, always available
// for cache reads.
var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("zstd: init decoder: " + err.Error())
	}
}

// entry is the msgpack envelope written per cached tile. Empty tiles are
// cached too: a known-missing tile saves an upstream round trip.
type entry struct {
	Data      []byte    `msgpack:"data"`
	FetchedAt time.Time `msgpack:"fetched_at"`
}

// diskCache stores one zstd-compressed msgpack envelope per coordinate
// under <dir>/z/x/y. Expiry is checked on read; there is no sweeper.
// The cache is best-effort: read or write failures degrade to upstream
// fetches and are logged at Debug.
type diskCache struct {
	dir    string
	ttl    time.Duration
	enc    *zstd.Encoder
	logger *slog.Logger
}

func newDiskCache(dir string, ttl time.Duration, logger *slog.Logger) (*diskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd: init encoder: %w", err)
	}
	return &diskCache{dir: dir, ttl: ttl, enc: enc, logger: logger}, nil
}

func (c *diskCache) path(coord tiles.Coord) string {
	return filepath.Join(c.dir, coord.Path())
}

// get returns the cached tile and true on a fresh hit. Expired entries
// are removed on sight.
func (c *diskCache) get(coord tiles.Coord) ([]byte, bool) {
	path := c.path(coord)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	decoded, err := zstdDec.DecodeAll(raw, nil)
	if err != nil {
		c.logger.Debug("cache entry corrupt, removing", "coord", coord.String(), "error", err)
		_ = os.Remove(path)
		return nil, false
	}

	var e entry
	if err := msgpack.Unmarshal(decoded, &e); err != nil {
		c.logger.Debug("cache entry corrupt, removing", "coord", coord.String(), "error", err)
		_ = os.Remove(path)
		return nil, false
	}

	if time.Since(e.FetchedAt) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}
	return e.Data, true
}

// put writes an entry via temp file + rename so concurrent readers never
// see a partial write.
func (c *diskCache) put(coord tiles.Coord, data []byte) {
	path := c.path(coord)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Debug("cache write failed", "coord", coord.String(), "error", err)
		return
	}

	encoded, err := msgpack.Marshal(entry{Data: data, FetchedAt: time.Now()})
	if err != nil {
		c.logger.Debug("cache write failed", "coord", coord.String(), "error", err)
		return
	}
	compressed := c.enc.EncodeAll(encoded, nil)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		c.logger.Debug("cache write failed", "coord", coord.String(), "error", err)
		return
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		c.logger.Debug("cache write failed", "coord", coord.String(), "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		c.logger.Debug("cache write failed", "coord", coord.String(), "error", err)
	}
}
