package proxy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"tileserv/internal/source/proxy"
	"tileserv/internal/tiles"
)

func pngInfo() tiles.Info {
	return tiles.Info{Format: tiles.FormatPNG}
}

func TestFetchesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/4/2/7" {
			t.Errorf("upstream path = %q", r.URL.Path)
		}
		w.Write([]byte("upstream-tile"))
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{ID: "p", Upstream: upstream.URL, Info: pngInfo()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := src.Tile(context.Background(), tiles.Coord{Z: 4, X: 2, Y: 7}, nil)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if string(data) != "upstream-tile" {
		t.Errorf("got %q", data)
	}
}

func TestTemplateExpansion(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("x"))
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{
		ID:       "p",
		Upstream: upstream.URL + "/tiles/{z}/{x}/{y}.png",
		Info:     pngInfo(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := src.Tile(context.Background(), tiles.Coord{Z: 1, X: 2, Y: 3}, nil); err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if gotPath != "/tiles/1/2/3.png" {
		t.Errorf("upstream path = %q", gotPath)
	}
}

func TestUpstream404IsEmptyTile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{ID: "p", Upstream: upstream.URL, Info: pngInfo()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := src.Tile(context.Background(), tiles.Coord{Z: 0, X: 0, Y: 0}, nil)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("404 should yield empty tile, got %d bytes", len(data))
	}
}

func TestUpstreamServerErrorFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{ID: "p", Upstream: upstream.URL, Info: pngInfo()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := src.Tile(context.Background(), tiles.Coord{Z: 0, X: 0, Y: 0}, nil); err == nil {
		t.Error("500 upstream should fail the fetch")
	}
}

func TestDiskCacheAvoidsRefetch(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("cached-tile"))
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{
		ID:       "p",
		Upstream: upstream.URL,
		Info:     pngInfo(),
		CacheDir: t.TempDir(),
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	coord := tiles.Coord{Z: 5, X: 9, Y: 9}
	for range 3 {
		data, err := src.Tile(context.Background(), coord, nil)
		if err != nil {
			t.Fatalf("Tile: %v", err)
		}
		if string(data) != "cached-tile" {
			t.Errorf("got %q", data)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestQueryBypassesCacheAndForwards(t *testing.T) {
	var calls atomic.Int64
	var gotQuery url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotQuery = r.URL.Query()
		w.Write([]byte("q"))
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{
		ID:       "p",
		Upstream: upstream.URL,
		Info:     pngInfo(),
		CacheDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !src.SupportsQuery() {
		t.Fatal("proxy source should support queries")
	}

	query := url.Values{"style": {"dark"}}
	coord := tiles.Coord{Z: 1, X: 0, Y: 0}
	for range 2 {
		if _, err := src.Tile(context.Background(), coord, query); err != nil {
			t.Fatalf("Tile: %v", err)
		}
	}

	if n := calls.Load(); n != 2 {
		t.Errorf("queried fetches should bypass the cache, upstream called %d times", n)
	}
	if gotQuery.Get("style") != "dark" {
		t.Errorf("query not forwarded: %v", gotQuery)
	}
}

func TestExpiredCacheEntryRefetches(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("t"))
	}))
	defer upstream.Close()

	src, err := proxy.New(proxy.Config{
		ID:       "p",
		Upstream: upstream.URL,
		Info:     pngInfo(),
		CacheDir: t.TempDir(),
		CacheTTL: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	coord := tiles.Coord{Z: 2, X: 1, Y: 1}
	for range 2 {
		if _, err := src.Tile(context.Background(), coord, nil); err != nil {
			t.Fatalf("Tile: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	if n := calls.Load(); n != 2 {
		t.Errorf("expired entries should refetch, upstream called %d times", n)
	}
}

func TestInvalidUpstreamFails(t *testing.T) {
	_, err := proxy.New(proxy.Config{ID: "p", Upstream: "http://bad url^/{z}/{x}/{y}", Info: pngInfo()})
	if err == nil {
		t.Error("invalid upstream URL should fail construction")
	}
}

func TestFactoryRequiresUpstream(t *testing.T) {
	factory := proxy.NewFactory()
	if _, err := factory("p", map[string]string{}, nil); err == nil {
		t.Error("missing upstream should fail")
	}
}

func TestFactoryParsesParams(t *testing.T) {
	factory := proxy.NewFactory()
	src, err := factory("p", map[string]string{
		"upstream":   "https://tiles.example.com/{z}/{x}/{y}.pbf",
		"format":     "pbf",
		"encoding":   "gzip",
		"rate_limit": "10",
		"maxzoom":    "14",
	}, nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	want := tiles.Info{Format: tiles.FormatMVT, Encoding: tiles.EncodingGzip}
	if src.TileInfo() != want {
		t.Errorf("TileInfo = %v, want %v", src.TileInfo(), want)
	}
	if src.Metadata().MaxZoom == nil || *src.Metadata().MaxZoom != 14 {
		t.Errorf("maxzoom not parsed: %+v", src.Metadata())
	}
}
