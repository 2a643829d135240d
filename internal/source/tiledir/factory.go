package tiledir

import (
	"cmp"
	"fmt"
	"log/slog"

	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// NewFactory returns a source.Factory for tile directory sources.
//
// Params:
//
//	root     tree root directory (required)
//	ext      tile file extension, determines the format (default "png")
//	encoding encoding of the stored files (default none)
func NewFactory() source.Factory {
	return func(id string, params map[string]string, logger *slog.Logger) (source.Source, error) {
		root := params["root"]
		if root == "" {
			return nil, fmt.Errorf("tiledir source %q: missing required param \"root\"", id)
		}
		encoding, err := tiles.ParseEncoding(params["encoding"])
		if err != nil {
			return nil, err
		}
		return New(Config{
			ID:       id,
			Root:     root,
			Ext:      cmp.Or(params["ext"], "png"),
			Encoding: encoding,
			Logger:   logger,
		})
	}
}
