package proxy

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// NewFactory returns a source.Factory for proxy sources.
//
// Params:
//
//	upstream    tile URL template with {z}/{x}/{y} placeholders (required)
//	format      upstream tile format (default "png")
//	encoding    upstream content encoding (default none)
//	rate_limit  upstream requests per second (default unlimited)
//	burst       rate limiter burst (default 1)
//	cache_dir   disk cache directory (default no cache)
//	cache_ttl   cache entry lifetime (default "1h")
//	name, description, attribution, minzoom, maxzoom: metadata fields
func NewFactory() source.Factory {
	return func(id string, params map[string]string, logger *slog.Logger) (source.Source, error) {
		upstream := params["upstream"]
		if upstream == "" {
			return nil, fmt.Errorf("proxy source %q: missing required param \"upstream\"", id)
		}

		format, err := tiles.ParseFormat(valueOr(params, "format", "png"))
		if err != nil {
			return nil, err
		}
		encoding, err := tiles.ParseEncoding(params["encoding"])
		if err != nil {
			return nil, err
		}

		cfg := Config{
			ID:       id,
			Upstream: upstream,
			Info:     tiles.Info{Format: format, Encoding: encoding},
			CacheDir: params["cache_dir"],
			Logger:   logger,
		}

		if v := params["rate_limit"]; v != "" {
			cfg.RateLimit, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid rate_limit %q: %w", v, err)
			}
		}
		if v := params["burst"]; v != "" {
			cfg.Burst, err = strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid burst %q: %w", v, err)
			}
		}
		if v := params["cache_ttl"]; v != "" {
			cfg.CacheTTL, err = time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid cache_ttl %q: %w", v, err)
			}
		}

		md := &tiles.Metadata{
			Name:        params["name"],
			Description: params["description"],
			Attribution: params["attribution"],
		}
		if md.MinZoom, err = parseZoom(params["minzoom"]); err != nil {
			return nil, err
		}
		if md.MaxZoom, err = parseZoom(params["maxzoom"]); err != nil {
			return nil, err
		}
		cfg.Metadata = md

		return New(cfg)
	}
}

func parseZoom(s string) (*uint8, error) {
	if s == "" {
		return nil, nil
	}
	z, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid zoom %q: %w", s, err)
	}
	v := uint8(z)
	return &v, nil
}

func valueOr(params map[string]string, key, def string) string {
	if v := params[key]; v != "" {
		return v
	}
	return def
}
