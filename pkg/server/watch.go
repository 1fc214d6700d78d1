package server

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/crystal-mush/riftcore/pkg/navgrid"
)

// WatchNavGrid reloads the navigation grid when its file changes on disk.
// The directory is watched rather than the file so editors that replace
// the file are noticed. Parsing happens here; the swap is posted to the
// simulation goroutine. Returns when ctx is cancelled.
func (g *Game) WatchNavGrid(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WARNING: Could not start nav grid watcher: %v", err)
		return nil
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Printf("WARNING: Could not watch nav grid directory %s: %v", filepath.Dir(path), err)
		return nil
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != target {
				continue
			}
			grid, err := navgrid.Load(path)
			if err != nil {
				log.Printf("WARNING: nav grid changed but failed to load: %v", err)
				continue
			}
			log.Printf("Nav grid changed: %s", path)
			g.Post("reload navgrid", func() { g.SetNav(grid) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Nav grid watcher error: %v", err)
		}
	}
}
