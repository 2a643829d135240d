package static

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"

	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// NewFactory returns a source.Factory for static sources.
//
// Params:
//
//	format      tile format (default "png")
//	encoding    content encoding (default none)
//	tile        base64-encoded payload served for every coordinate
//	name        display name
//	description description
//	attribution attribution
//	minzoom     minimum zoom (inclusive)
//	maxzoom     maximum zoom (inclusive)
func NewFactory() source.Factory {
	return func(id string, params map[string]string, logger *slog.Logger) (source.Source, error) {
		format, err := tiles.ParseFormat(valueOr(params, "format", "png"))
		if err != nil {
			return nil, err
		}
		encoding, err := tiles.ParseEncoding(params["encoding"])
		if err != nil {
			return nil, err
		}

		var fill []byte
		if b64 := params["tile"]; b64 != "" {
			fill, err = base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return nil, fmt.Errorf("decode tile param: %w", err)
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

		return New(Config{
			ID:       id,
			Metadata: md,
			Info:     tiles.Info{Format: format, Encoding: encoding},
			Fill:     fill,
			Logger:   logger,
		}), nil
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
