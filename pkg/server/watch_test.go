package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchNavGridReloads(t *testing.T) {
	g := newTestGame(t)
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte("cell_size: 10\nrows: [\"..\", \"..\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	before := g.Nav()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.WatchNavGrid(ctx, path) }()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(50 * time.Millisecond) // let the watcher register

	if err := os.WriteFile(path, []byte("cell_size: 10\nrows: [\"...\", \".#.\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.Nav() == before && time.Now().Before(deadline) {
		g.Tick(time.Millisecond)
		time.Sleep(10 * time.Millisecond)
	}
	nav := g.Nav()
	if nav == before {
		t.Fatal("nav grid was not reloaded")
	}
	if nav.Width != 3 || nav.IsWalkable(15, 15) {
		t.Errorf("reloaded grid %dx%d, walkable(15,15)=%v", nav.Width, nav.Height, nav.IsWalkable(15, 15))
	}
	if g.API.IsWalkable(15, 15) {
		t.Error("API still uses the old grid")
	}
}

func TestWatchNavGridBadFileKeepsGrid(t *testing.T) {
	g := newTestGame(t)
	path := filepath.Join(t.TempDir(), "grid.yaml")
	os.WriteFile(path, []byte("cell_size: 10\nrows: [\"..\"]\n"), 0o644)
	before := g.Nav()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.WatchNavGrid(ctx, path) }()
	time.Sleep(50 * time.Millisecond)

	os.WriteFile(path, []byte("rows: [\"..\", \".\"]\n"), 0o644)
	time.Sleep(200 * time.Millisecond)
	g.Tick(time.Millisecond)
	cancel()
	<-done

	if g.Nav() != before {
		t.Error("invalid grid replaced the active one")
	}
}
