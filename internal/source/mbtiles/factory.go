package mbtiles

import (
	"fmt"
	"log/slog"

	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// NewFactory returns a source.Factory for MBTiles sources.
//
// Params:
//
//	path     archive path (required)
//	format   format override; normally read from the metadata table
//	encoding encoding override; defaults to gzip for mvt, none otherwise
func NewFactory() source.Factory {
	return func(id string, params map[string]string, logger *slog.Logger) (source.Source, error) {
		path := params["path"]
		if path == "" {
			return nil, fmt.Errorf("mbtiles source %q: missing required param \"path\"", id)
		}

		cfg := Config{
			ID:     id,
			Path:   path,
			Logger: logger,
		}
		if v := params["format"]; v != "" {
			format, err := tiles.ParseFormat(v)
			if err != nil {
				return nil, err
			}
			cfg.Format = format
		}
		if v, ok := params["encoding"]; ok {
			encoding, err := tiles.ParseEncoding(v)
			if err != nil {
				return nil, err
			}
			cfg.Encoding = &encoding
		}
		return New(cfg)
	}
}
