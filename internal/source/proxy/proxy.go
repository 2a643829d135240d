// Package proxy provides a tile source that fetches tiles from a remote
// HTTP tile service, with per-source rate limiting and an optional
// compressed disk cache.
package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tileserv/internal/logging"
	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// maxTileSize caps a single upstream tile payload. Tiles larger than
// this indicate a misconfigured upstream, not a real tile.
const maxTileSize = 32 << 20 // 32 MB

// Source fetches tiles from an upstream URL template.
type Source struct {
	id       string
	upstream string
	metadata *tiles.Metadata
	info     tiles.Info
	client   *http.Client
	limiter  *rate.Limiter
	cache    *diskCache
	logger   *slog.Logger
}

var _ source.Source = (*Source)(nil)

// Config holds proxy source configuration.
type Config struct {
	// ID is the source identifier.
	ID string

	// Upstream is the tile URL template. "{z}", "{x}", "{y}" are
	// replaced per request; a template without placeholders gets
	// "/z/x/y" appended.
	Upstream string

	// Metadata is the source's descriptive document. May be nil.
	Metadata *tiles.Metadata

	// Info describes the upstream payload bytes.
	Info tiles.Info

	// RateLimit caps upstream requests per second. Zero means no limit.
	RateLimit float64

	// Burst is the rate limiter burst size. Defaults to 1 when a rate
	// limit is set.
	Burst int

	// CacheDir enables the disk cache when non-empty.
	CacheDir string

	// CacheTTL is how long cached tiles stay valid. Defaults to 1 hour.
	CacheTTL time.Duration

	// Client is the HTTP client to use. Defaults to a client with a
	// 30 second timeout.
	Client *http.Client

	// Logger for structured logging.
	Logger *slog.Logger
}

// New creates a proxy source. The upstream is validated as a URL; the
// cache directory is created if configured.
func New(cfg Config) (*Source, error) {
	probe := strings.NewReplacer("{z}", "0", "{x}", "0", "{y}", "0").Replace(cfg.Upstream)
	if _, err := url.Parse(probe); err != nil {
		return nil, fmt.Errorf("proxy source %q: invalid upstream %q: %w", cfg.ID, cfg.Upstream, err)
	}

	logger := logging.Source(cfg.Logger, "proxy", cfg.ID)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	var cache *diskCache
	if cfg.CacheDir != "" {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		var err error
		cache, err = newDiskCache(cfg.CacheDir, ttl, logger)
		if err != nil {
			return nil, err
		}
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	logger.Info("proxy source ready", "upstream", cfg.Upstream, "cached", cache != nil)

	return &Source{
		id:       cfg.ID,
		upstream: cfg.Upstream,
		metadata: cfg.Metadata,
		info:     cfg.Info,
		client:   client,
		limiter:  limiter,
		cache:    cache,
		logger:   logger,
	}, nil
}

func (s *Source) ID() string                { return s.id }
func (s *Source) Metadata() *tiles.Metadata { return s.metadata }
func (s *Source) TileInfo() tiles.Info      { return s.info }

// SupportsQuery is true: caller query parameters are forwarded to the
// upstream URL.
func (s *Source) SupportsQuery() bool { return true }

// Clone returns a source sharing the HTTP client, rate limiter, and
// cache. Sharing the limiter is deliberate: the upstream quota is per
// upstream, not per clone.
func (s *Source) Clone() source.Source {
	cp := *s
	cp.metadata = s.metadata.Clone()
	return &cp
}

// Tile fetches the tile at coord. Cached responses are served when the
// caller passed no query parameters; queried requests always go
// upstream, since the cache is keyed by coordinate alone.
func (s *Source) Tile(ctx context.Context, coord tiles.Coord, query url.Values) ([]byte, error) {
	if len(query) == 0 && s.cache != nil {
		if data, ok := s.cache.get(coord); ok {
			return data, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	data, err := s.fetch(ctx, coord, query)
	if err != nil {
		return nil, err
	}

	if len(query) == 0 && s.cache != nil {
		s.cache.put(coord, data)
	}
	return data, nil
}

// fetch performs the upstream GET. 404 and 204 are empty tiles, not
// errors; any other non-200 status fails the request.
func (s *Source) fetch(ctx context.Context, coord tiles.Coord, query url.Values) ([]byte, error) {
	u := s.urlFor(coord)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s from upstream: %w", coord, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("upstream returned %s for tile %s", resp.Status, coord)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream tile %s: %w", coord, err)
	}
	if len(data) > maxTileSize {
		return nil, fmt.Errorf("upstream tile %s exceeds %d bytes", coord, maxTileSize)
	}
	return data, nil
}

// urlFor expands the upstream template for one coordinate.
func (s *Source) urlFor(coord tiles.Coord) string {
	if strings.Contains(s.upstream, "{z}") {
		return strings.NewReplacer(
			"{z}", strconv.FormatUint(uint64(coord.Z), 10),
			"{x}", strconv.FormatUint(uint64(coord.X), 10),
			"{y}", strconv.FormatUint(uint64(coord.Y), 10),
		).Replace(s.upstream)
	}
	return strings.TrimSuffix(s.upstream, "/") + "/" + coord.Path()
}
