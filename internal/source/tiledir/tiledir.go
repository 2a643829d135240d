// Package tiledir provides a tile source backed by a z/x/y directory
// tree of pre-rendered tile files.
package tiledir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"tileserv/internal/logging"
	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// metadataFile, when present beside the tree root, supplies the source's
// descriptive document.
const metadataFile = "metadata.json"

// Source serves tiles from <root>/<z>/<x>/<y>.<ext>.
type Source struct {
	id       string
	root     string
	ext      string
	metadata *tiles.Metadata
	info     tiles.Info
	logger   *slog.Logger
}

var _ source.Source = (*Source)(nil)

// Config holds tile directory source configuration.
type Config struct {
	// ID is the source identifier.
	ID string

	// Root is the tree root directory.
	Root string

	// Ext is the tile file extension without the dot (e.g. "png", "pbf").
	// It also determines the source format.
	Ext string

	// Encoding of the stored tile files, if pre-compressed.
	Encoding tiles.Encoding

	// Logger for structured logging.
	Logger *slog.Logger
}

// New validates the root directory and loads metadata.json if present.
func New(cfg Config) (*Source, error) {
	st, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("tile directory %s: %w", cfg.Root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("tile directory %s: not a directory", cfg.Root)
	}

	format, err := tiles.ParseFormat(cfg.Ext)
	if err != nil {
		return nil, fmt.Errorf("tile directory %s: %w", cfg.Root, err)
	}

	md, err := loadMetadata(filepath.Join(cfg.Root, metadataFile))
	if err != nil {
		return nil, err
	}

	logger := logging.Source(cfg.Logger, "tiledir", cfg.ID)
	logger.Info("opened tile directory", "root", cfg.Root, "format", format.String())

	return &Source{
		id:       cfg.ID,
		root:     cfg.Root,
		ext:      cfg.Ext,
		metadata: md,
		info:     tiles.Info{Format: format, Encoding: cfg.Encoding},
		logger:   logger,
	}, nil
}

// loadMetadata reads the optional metadata document. A missing file
// yields an empty document, not an error.
func loadMetadata(path string) (*tiles.Metadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &tiles.Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	md := &tiles.Metadata{}
	if err := json.Unmarshal(data, md); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return md, nil
}

func (s *Source) ID() string                { return s.id }
func (s *Source) Metadata() *tiles.Metadata { return s.metadata }
func (s *Source) TileInfo() tiles.Info      { return s.info }
func (s *Source) SupportsQuery() bool       { return false }

// Clone returns an independent copy. The source holds no open handles,
// so the copy shares nothing but the immutable configuration.
func (s *Source) Clone() source.Source {
	cp := *s
	cp.metadata = s.metadata.Clone()
	return &cp
}

// Tile reads the file for coord. A missing file returns empty bytes.
func (s *Source) Tile(_ context.Context, coord tiles.Coord, _ url.Values) ([]byte, error) {
	path := filepath.Join(s.root,
		fmt.Sprintf("%d", coord.Z),
		fmt.Sprintf("%d", coord.X),
		fmt.Sprintf("%d.%s", coord.Y, s.ext))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tile %s: %w", coord, err)
	}
	return data, nil
}
