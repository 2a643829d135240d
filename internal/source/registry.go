package source

import (
	"log/slog"
	"sort"
	"strings"

	"tileserv/internal/logging"
	"tileserv/internal/tiles"
)

// Registry owns all registered sources, keyed by identifier.
//
// Concurrency model:
//   - The mapping is built once at construction and never mutated;
//     Catalog/Get/Resolve are lock-free and safe to call concurrently.
//   - Reconfiguration is whole-instance replacement: build a new
//     Registry and swap the pointer (see server.SetRegistry).
//
// Logging:
//   - Logger is dependency-injected and scoped with component="registry"
//   - Duplicate identifiers at construction log a warning (last write
//     wins); zoom filtering during resolution logs at Debug
type Registry struct {
	sources map[string]Source
	logger  *slog.Logger
}

// NewRegistry takes ownership of one or more source collections, flattens
// them, and indexes by identifier. Each contributing subsystem guarantees
// unique identifiers within its own list; across lists, a duplicate
// identifier silently replaces the earlier source (logged at Warn).
//
// No cross-source consistency is checked here: unrelated sources may have
// unrelated formats, and compatibility is only decided per request in
// Resolve.
func NewRegistry(logger *slog.Logger, lists ...[]Source) *Registry {
	logger = logging.Default(logger).With("component", "registry")

	sources := make(map[string]Source)
	for _, list := range lists {
		for _, src := range list {
			id := src.ID()
			if _, ok := sources[id]; ok {
				logger.Warn("duplicate source identifier, replacing earlier source", "id", id)
			}
			sources[id] = src
		}
	}
	return &Registry{sources: sources, logger: logger}
}

// CatalogItem pairs a source identifier with its derived catalog entry.
type CatalogItem struct {
	ID    string
	Entry CatalogEntry
}

// Catalog returns a snapshot of all sources as catalog entries, ordered
// by identifier ascending. Entries are recomputed on every call; the
// catalog has no identity of its own.
func (r *Registry) Catalog() []CatalogItem {
	items := make([]CatalogItem, 0, len(r.sources))
	for id, src := range r.sources {
		items = append(items, CatalogItem{ID: id, Entry: Entry(src)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// Get looks up a single source by identifier.
func (r *Registry) Get(id string) (Source, error) {
	src, ok := r.sources[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return src, nil
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// Resolution is the validated working set for one multi-source request.
type Resolution struct {
	// Sources in request order, minus any filtered out by zoom.
	Sources []Source

	// UsesQuery is true when at least one requested source supports
	// caller-supplied query parameters.
	UsesQuery bool

	// Info is the common tile format shared by every requested source.
	Info tiles.Info
}

// Resolve turns a comma-separated identifier list plus an optional zoom
// into a validated working set.
//
// Identifiers are split strictly on ',' with no trimming; duplicates are
// resolved independently per occurrence. The first source fixes the
// expected format and every later source must match it exactly. When a
// zoom is supplied, sources that do not cover it are dropped from the
// result without error; the format check still applies to them.
func (r *Registry) Resolve(ids string, zoom *uint8) (*Resolution, error) {
	if ids == "" {
		return nil, ErrNoSources
	}

	res := &Resolution{}
	var fixed bool
	for _, id := range strings.Split(ids, ",") {
		src, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		res.UsesQuery = res.UsesQuery || src.SupportsQuery()

		info := src.TileInfo()
		if !fixed {
			res.Info = info
			fixed = true
		} else if info != res.Info {
			return nil, &FormatMismatchError{Want: res.Info, Got: info}
		}

		if zoom != nil && !ValidZoom(src, *zoom) {
			r.logger.Debug("zoom not valid for source", "id", id, "zoom", *zoom)
			continue
		}
		res.Sources = append(res.Sources, src)
	}
	return res, nil
}
