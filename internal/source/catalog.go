package source

// CatalogEntry is the backend-agnostic public descriptor of a source,
// built on demand for the discovery endpoint. ContentType is always
// present; every other field is omitted when absent rather than emitted
// as an empty string.
type CatalogEntry struct {
	ContentType     string `json:"content_type"`
	ContentEncoding string `json:"content_encoding,omitempty"`
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	Attribution     string `json:"attribution,omitempty"`
}

// Entry derives the catalog entry for a source. The metadata name is
// included only when it differs from the source identifier, so the
// catalog never echoes the key back as a name.
func Entry(s Source) CatalogEntry {
	md := s.Metadata()
	info := s.TileInfo()

	e := CatalogEntry{
		ContentType:     info.Format.ContentType(),
		ContentEncoding: info.Encoding.ContentEncoding(),
	}
	if md == nil {
		return e
	}
	if md.Name != "" && md.Name != s.ID() {
		e.Name = md.Name
	}
	e.Description = md.Description
	e.Attribution = md.Attribution
	return e
}
