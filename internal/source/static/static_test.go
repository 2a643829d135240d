package static_test

import (
	"context"
	"testing"

	"tileserv/internal/source/static"
	"tileserv/internal/tiles"
)

func TestFillTile(t *testing.T) {
	src := static.New(static.Config{
		ID:   "solid",
		Info: tiles.Info{Format: tiles.FormatPNG},
		Fill: []byte("blank"),
	})

	data, err := src.Tile(context.Background(), tiles.Coord{Z: 3, X: 1, Y: 2}, nil)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if string(data) != "blank" {
		t.Errorf("got %q, want fill payload", data)
	}
}

func TestPutOverridesFill(t *testing.T) {
	src := static.New(static.Config{ID: "s", Info: tiles.Info{Format: tiles.FormatPNG}})
	coord := tiles.Coord{Z: 1, X: 0, Y: 1}
	src.Put(coord, []byte("special"))

	data, err := src.Tile(context.Background(), coord, nil)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if string(data) != "special" {
		t.Errorf("got %q, want put payload", data)
	}
}

func TestCloneSharesNothingMutable(t *testing.T) {
	src := static.New(static.Config{
		ID:       "s",
		Metadata: &tiles.Metadata{Name: "orig"},
		Info:     tiles.Info{Format: tiles.FormatPNG},
	})
	src.Put(tiles.Coord{Z: 0, X: 0, Y: 0}, []byte("zero"))

	clone := src.Clone()
	clone.Metadata().Name = "changed"
	if src.Metadata().Name != "orig" {
		t.Error("clone metadata aliases the original")
	}

	data, err := clone.Tile(context.Background(), tiles.Coord{Z: 0, X: 0, Y: 0}, nil)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if string(data) != "zero" {
		t.Error("clone lost loaded tiles")
	}
}

func TestFactory(t *testing.T) {
	factory := static.NewFactory()
	src, err := factory("layer", map[string]string{
		"format":  "pbf",
		"minzoom": "2",
		"maxzoom": "9",
		"name":    "Layer",
	}, nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if src.ID() != "layer" {
		t.Errorf("ID = %q", src.ID())
	}
	if src.TileInfo().Format != tiles.FormatMVT {
		t.Errorf("format = %v", src.TileInfo().Format)
	}
	md := src.Metadata()
	if md.MinZoom == nil || *md.MinZoom != 2 || md.MaxZoom == nil || *md.MaxZoom != 9 {
		t.Errorf("zoom bounds not parsed: %+v", md)
	}
}

func TestFactoryRejectsBadParams(t *testing.T) {
	factory := static.NewFactory()
	if _, err := factory("x", map[string]string{"format": "bmp"}, nil); err == nil {
		t.Error("unknown format should fail")
	}
	if _, err := factory("x", map[string]string{"minzoom": "300"}, nil); err == nil {
		t.Error("out-of-range zoom should fail")
	}
	if _, err := factory("x", map[string]string{"tile": "!!!"}, nil); err == nil {
		t.Error("invalid base64 tile should fail")
	}
}
