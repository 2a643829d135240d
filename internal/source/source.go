// Package source defines the capability contract every tile backend
// implements and the registry that owns registered backends.
//
// The contract splits cheap description from expensive retrieval: ID,
// Metadata, TileInfo, and SupportsQuery are pure and synchronous so the
// registry can validate a multi-source request in full before any backend
// I/O happens. Tile is the only operation allowed to block or fail.
package source

import (
	"context"
	"log/slog"
	"net/url"

	"tileserv/internal/tiles"
)

// Source is a tile-producing backend. Implementations must be safe for
// concurrent use; all methods except Tile must be cheap and side-effect
// free and return constant answers for the source's lifetime.
type Source interface {
	// ID returns the source's stable identifier.
	ID() string

	// Metadata returns the source's descriptive document. Zoom bounds
	// must not change between calls.
	Metadata() *tiles.Metadata

	// TileInfo describes the bytes Tile returns.
	TileInfo() tiles.Info

	// Clone returns an independently owned source with identical
	// externally observable behavior.
	Clone() Source

	// SupportsQuery reports whether Tile honors caller-supplied query
	// parameters.
	SupportsQuery() bool

	// Tile fetches the tile at coord. query is non-nil only when the
	// caller supplied parameters; sources that do not support queries
	// ignore it. A missing tile is not an error: implementations return
	// empty bytes and a nil error.
	Tile(ctx context.Context, coord tiles.Coord, query url.Values) ([]byte, error)
}

// Factory creates a Source from configuration parameters. Factories
// validate required params and return a fully constructed source or a
// descriptive error; they must not perform I/O beyond what construction
// requires (opening a database file, statting a directory).
//
// The logger is optional. Factories scope it with their own component
// attributes before handing it to the source.
type Factory func(id string, params map[string]string, logger *slog.Logger) (Source, error)

// ValidZoom reports whether zoom falls inside the source's declared
// bounds. Both bounds are inclusive; an absent bound is unbounded.
func ValidZoom(s Source, zoom uint8) bool {
	md := s.Metadata()
	if md == nil {
		return true
	}
	if md.MinZoom != nil && zoom < *md.MinZoom {
		return false
	}
	if md.MaxZoom != nil && zoom > *md.MaxZoom {
		return false
	}
	return true
}
