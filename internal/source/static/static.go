// Package static provides an in-memory tile source. It serves a fixed
// byte payload for every coordinate, or per-coordinate payloads when
// loaded with Put. It is the memory twin of the real backends, used for
// solid-color layers and in tests.
package static

import (
	"context"
	"log/slog"
	"maps"
	"net/url"

	"tileserv/internal/logging"
	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// Source is an in-memory tile source.
type Source struct {
	id       string
	metadata *tiles.Metadata
	info     tiles.Info
	fill     []byte
	byCoord  map[tiles.Coord][]byte
	logger   *slog.Logger
}

var _ source.Source = (*Source)(nil)

// Config holds static source configuration.
type Config struct {
	// ID is the source identifier.
	ID string

	// Metadata is the source's descriptive document. May be nil.
	Metadata *tiles.Metadata

	// Info describes the payload bytes.
	Info tiles.Info

	// Fill is returned for every coordinate without an explicit Put.
	Fill []byte

	// Logger for structured logging.
	Logger *slog.Logger
}

// New creates a static source.
func New(cfg Config) *Source {
	return &Source{
		id:       cfg.ID,
		metadata: cfg.Metadata,
		info:     cfg.Info,
		fill:     cfg.Fill,
		byCoord:  make(map[tiles.Coord][]byte),
		logger:   logging.Source(cfg.Logger, "static", cfg.ID),
	}
}

// Put registers a payload for one coordinate. Not safe to call
// concurrently with Tile; load tiles before registering the source.
func (s *Source) Put(coord tiles.Coord, data []byte) {
	s.byCoord[coord] = data
}

func (s *Source) ID() string                { return s.id }
func (s *Source) Metadata() *tiles.Metadata { return s.metadata }
func (s *Source) TileInfo() tiles.Info      { return s.info }
func (s *Source) SupportsQuery() bool       { return false }

// Clone returns an independent copy with the same tiles.
func (s *Source) Clone() source.Source {
	cp := New(Config{
		ID:       s.id,
		Metadata: s.metadata.Clone(),
		Info:     s.info,
		Fill:     s.fill,
		Logger:   s.logger,
	})
	cp.byCoord = maps.Clone(s.byCoord)
	return cp
}

// Tile returns the payload for coord, or the fill payload when no
// explicit tile was loaded.
func (s *Source) Tile(_ context.Context, coord tiles.Coord, _ url.Values) ([]byte, error) {
	if data, ok := s.byCoord[coord]; ok {
		return data, nil
	}
	return s.fill, nil
}
