package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// handleCatalog serves the discovery endpoint: every registered source's
// public descriptor, keyed by identifier. encoding/json emits map keys
// in ascending order, which is exactly the catalog's ordering guarantee.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	items := s.Registry().Catalog()
	catalog := make(map[string]source.CatalogEntry, len(items))
	for _, item := range items {
		catalog[item.ID] = item.Entry
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(catalog); err != nil {
		s.logger.Warn("write catalog response", "error", err)
	}
}

// handleTile resolves a multi-source tile request and dispatches the
// fetches. Resolution failures are client errors: unknown identifiers
// map to 404, format conflicts and malformed coordinates to 400. All
// validation happens before any backend I/O.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	coord, ok := parseTilePath(r)
	if !ok {
		http.Error(w, "invalid tile coordinate", http.StatusBadRequest)
		return
	}

	res, err := s.Registry().Resolve(r.PathValue("ids"), &coord.Z)
	if err != nil {
		var notFound *source.NotFoundError
		switch {
		case errors.As(err, &notFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	if len(res.Sources) == 0 {
		// Every requested source was filtered out by zoom: a blank
		// tile, not an error.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var query url.Values
	if res.UsesQuery && len(r.URL.Query()) > 0 {
		query = r.URL.Query()
	}

	// Fetch all sources concurrently, preserving request order in the
	// response. Concatenation is valid for the formats that allow
	// multi-source requests: gzip members concatenate, and so do MVT
	// layer sets.
	parts := make([][]byte, len(res.Sources))
	g, ctx := errgroup.WithContext(r.Context())
	for i, src := range res.Sources {
		g.Go(func() error {
			data, err := src.Tile(ctx, coord, query)
			if err != nil {
				return err
			}
			parts[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("tile fetch failed", "coord", coord.String(), "error", err)
		http.Error(w, "tile fetch failed", http.StatusInternalServerError)
		return
	}

	var size int
	for _, p := range parts {
		size += len(p)
	}
	if size == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", res.Info.Format.ContentType())
	if enc := res.Info.Encoding.ContentEncoding(); enc != "" {
		w.Header().Set("Content-Encoding", enc)
	}
	for _, p := range parts {
		if _, err := w.Write(p); err != nil {
			s.logger.Warn("write tile response", "coord", coord.String(), "error", err)
			return
		}
	}
}

// parseTilePath extracts and bounds-checks the coordinate path values.
func parseTilePath(r *http.Request) (tiles.Coord, bool) {
	z, err := strconv.ParseUint(r.PathValue("z"), 10, 8)
	if err != nil {
		return tiles.Coord{}, false
	}
	x, err := strconv.ParseUint(r.PathValue("x"), 10, 32)
	if err != nil {
		return tiles.Coord{}, false
	}
	y, err := strconv.ParseUint(r.PathValue("y"), 10, 32)
	if err != nil {
		return tiles.Coord{}, false
	}
	coord := tiles.Coord{Z: uint8(z), X: uint32(x), Y: uint32(y)}
	return coord, coord.InBounds()
}
