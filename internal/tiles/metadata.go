package tiles

// Metadata is a source's descriptive document. All fields are optional;
// a nil zoom bound means unbounded on that side, an empty string means
// the field is absent.
type Metadata struct {
	MinZoom     *uint8 `json:"minzoom,omitempty"`
	MaxZoom     *uint8 `json:"maxzoom,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Attribution string `json:"attribution,omitempty"`
}

// Clone returns an independent copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	cp := *m
	if m.MinZoom != nil {
		v := *m.MinZoom
		cp.MinZoom = &v
	}
	if m.MaxZoom != nil {
		v := *m.MaxZoom
		cp.MaxZoom = &v
	}
	return &cp
}

// Zoom is a convenience for building optional zoom bounds in literals.
func Zoom(z uint8) *uint8 {
	return &z
}
