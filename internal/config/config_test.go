package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tileserv/internal/config"
	"tileserv/internal/source/static"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tileserv.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"sources": [
			{"id": "a", "type": "static", "params": {"format": "png"}},
			{"id": "b", "type": "static"}
		]
	}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("loaded %d sources, want 2", len(cfg.Sources))
	}
	if cfg.Sources[0].Params["format"] != "png" {
		t.Errorf("params not loaded: %+v", cfg.Sources[0])
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	path := writeConfig(t, `{"sources": [{"id": "a", "type": "static"}, {"id": "a", "type": "static"}]}`)
	if _, err := config.Load(path); err == nil {
		t.Error("duplicate ids within one config should fail")
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	path := writeConfig(t, `{"sources": [{"type": "static"}]}`)
	if _, err := config.Load(path); err == nil {
		t.Error("missing id should fail")
	}

	path = writeConfig(t, `{"sources": [{"id": "a"}]}`)
	if _, err := config.Load(path); err == nil {
		t.Error("missing type should fail")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, "{not json")
	if _, err := config.Load(path); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestBuildConstructsSources(t *testing.T) {
	cfg := &config.Config{Sources: []config.SourceConfig{
		{ID: "a", Type: "static", Params: map[string]string{"format": "pbf", "encoding": "gzip"}},
	}}
	factories := config.Factories{"static": static.NewFactory()}

	srcs, err := config.Build(cfg, factories, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(srcs) != 1 || srcs[0].ID() != "a" {
		t.Fatalf("built %d sources", len(srcs))
	}
}

func TestBuildUnknownTypeFails(t *testing.T) {
	cfg := &config.Config{Sources: []config.SourceConfig{{ID: "a", Type: "nope"}}}
	if _, err := config.Build(cfg, config.Factories{}, nil); err == nil {
		t.Error("unknown source type should fail")
	}
}

func TestBuildFactoryErrorNamesSource(t *testing.T) {
	cfg := &config.Config{Sources: []config.SourceConfig{
		{ID: "bad", Type: "static", Params: map[string]string{"format": "bmp"}},
	}}
	factories := config.Factories{"static": static.NewFactory()}

	_, err := config.Build(cfg, factories, nil)
	if err == nil {
		t.Fatal("expected factory error")
	}
	if got := err.Error(); !strings.Contains(got, "bad") {
		t.Errorf("error should name the failing source: %q", got)
	}
}
