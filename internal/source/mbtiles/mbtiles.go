// Package mbtiles provides a tile source backed by an MBTiles archive
// (a SQLite database with a tiles table and a metadata table).
package mbtiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	_ "modernc.org/sqlite"

	"tileserv/internal/logging"
	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// Source is an MBTiles-backed tile source. The archive is opened
// read-only at construction and its metadata table is read once; tile
// reads go through a single pooled connection.
type Source struct {
	id       string
	path     string
	db       *sql.DB
	metadata *tiles.Metadata
	info     tiles.Info
	logger   *slog.Logger
}

var _ source.Source = (*Source)(nil)

// Config holds MBTiles source configuration.
type Config struct {
	// ID is the source identifier.
	ID string

	// Path is the MBTiles archive path.
	Path string

	// Format overrides the format from the metadata table when non-zero.
	Format tiles.Format

	// Encoding overrides the encoding inferred from the format.
	// MBTiles vector tiles are conventionally gzip-compressed, so an
	// mvt archive defaults to gzip; raster formats default to none.
	Encoding *tiles.Encoding

	// Logger for structured logging.
	Logger *slog.Logger
}

// New opens the archive and reads its metadata table.
func New(cfg Config) (*Source, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open mbtiles %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set query_only: %w", err)
	}

	md, format, err := readMetadata(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read mbtiles metadata %s: %w", cfg.Path, err)
	}
	if cfg.Format != tiles.FormatUnknown {
		format = cfg.Format
	}
	if format == tiles.FormatUnknown {
		db.Close()
		return nil, fmt.Errorf("mbtiles %s: metadata declares no format", cfg.Path)
	}

	encoding := tiles.EncodingNone
	if format == tiles.FormatMVT {
		encoding = tiles.EncodingGzip
	}
	if cfg.Encoding != nil {
		encoding = *cfg.Encoding
	}

	logger := logging.Source(cfg.Logger, "mbtiles", cfg.ID)
	logger.Info("opened mbtiles archive", "path", cfg.Path, "format", format.String())

	return &Source{
		id:       cfg.ID,
		path:     cfg.Path,
		db:       db,
		metadata: md,
		info:     tiles.Info{Format: format, Encoding: encoding},
		logger:   logger,
	}, nil
}

// readMetadata loads the name/value metadata table. Unknown keys are
// ignored; malformed zoom bounds are an error (a corrupt archive should
// fail at startup, not at request time).
func readMetadata(db *sql.DB) (*tiles.Metadata, tiles.Format, error) {
	rows, err := db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, tiles.FormatUnknown, err
	}
	defer rows.Close()

	md := &tiles.Metadata{}
	format := tiles.FormatUnknown
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, tiles.FormatUnknown, err
		}
		switch name {
		case "name":
			md.Name = value
		case "description":
			md.Description = value
		case "attribution":
			md.Attribution = value
		case "minzoom":
			z, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return nil, tiles.FormatUnknown, fmt.Errorf("invalid minzoom %q: %w", value, err)
			}
			md.MinZoom = tiles.Zoom(uint8(z))
		case "maxzoom":
			z, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return nil, tiles.FormatUnknown, fmt.Errorf("invalid maxzoom %q: %w", value, err)
			}
			md.MaxZoom = tiles.Zoom(uint8(z))
		case "format":
			f, err := tiles.ParseFormat(value)
			if err != nil {
				return nil, tiles.FormatUnknown, err
			}
			format = f
		}
	}
	return md, format, rows.Err()
}

func (s *Source) ID() string                { return s.id }
func (s *Source) Metadata() *tiles.Metadata { return s.metadata }
func (s *Source) TileInfo() tiles.Info      { return s.info }
func (s *Source) SupportsQuery() bool       { return false }

// Clone returns a source sharing the underlying connection pool.
// database/sql handles are safe for concurrent use, so the clone is
// behaviorally independent; only Close is shared.
func (s *Source) Clone() source.Source {
	cp := *s
	cp.metadata = s.metadata.Clone()
	return &cp
}

// Tile reads one tile. MBTiles stores rows in TMS order, so the row is
// flipped: row = 2^z - 1 - y. A missing tile returns empty bytes.
func (s *Source) Tile(ctx context.Context, coord tiles.Coord, _ url.Values) ([]byte, error) {
	row := (uint32(1)<<coord.Z - 1) - coord.Y

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		coord.Z, coord.X, row,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tile %s from %s: %w", coord, s.path, err)
	}
	return data, nil
}

// Close releases the archive connection.
func (s *Source) Close() error {
	return s.db.Close()
}
