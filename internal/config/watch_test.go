package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tileserv/internal/config"
)

func TestWatchFiresOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tileserv.json")
	if err := os.WriteFile(path, []byte(`{"sources":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = config.Watch(ctx, path, nil, func() error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	// Give the watcher a moment to install before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"sources":[]}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not fire after config write")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on context cancellation")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tileserv.json")
	if err := os.WriteFile(path, []byte(`{"sources":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 1)
	go func() {
		_ = config.Watch(ctx, path, nil, func() error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("watch fired for an unrelated file")
	case <-time.After(time.Second):
	}
}
