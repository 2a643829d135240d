package source_test

import (
	"encoding/json"
	"strings"
	"testing"

	"tileserv/internal/source"
)

func TestCatalogEntryJSONOmitsAbsentFields(t *testing.T) {
	s := newFake("plain", pngInfo)

	data, err := json.Marshal(source.Entry(s))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)

	if !strings.Contains(got, `"content_type":"image/png"`) {
		t.Errorf("content_type missing: %s", got)
	}
	for _, field := range []string{"content_encoding", "name", "description", "attribution"} {
		if strings.Contains(got, field) {
			t.Errorf("absent field %q should be omitted: %s", field, got)
		}
	}
}

func TestCatalogEntryJSONIncludesPresentFields(t *testing.T) {
	s := newFake("full", mvtGzip)
	s.metadata.Name = "Full Layer"
	s.metadata.Attribution = "© contributors"

	data, err := json.Marshal(source.Entry(s))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)

	for _, want := range []string{`"content_encoding":"gzip"`, `"name":"Full Layer"`, `"attribution":"© contributors"`} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in %s", want, got)
		}
	}
}
