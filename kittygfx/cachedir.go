package kittygfx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// cacheDir owns the process-scoped cache directory: files named
// img-<image_id:03u>-<frame_index:03u>. The directory is watched with
// fsnotify so an external removal marks it stale; the watch is best-effort
// (some platforms/sandboxes refuse inotify/kqueue), and ensure also stats the
// directory on every call whether or not the watch is installed.
type cacheDir struct {
	template string
	path     string
	watcher  *fsnotify.Watcher
	stale    bool
}

func newCacheDir(template string) *cacheDir {
	if template == "" {
		template = "kitty-gfx-*"
	}
	return &cacheDir{template: template, stale: true}
}

// ensure returns the live cache directory path, recreating it if it was
// never created, was externally removed (observed via the fsnotify watch),
// or fails a direct stat (the watch's fallback path).
func (c *cacheDir) ensure(logf func(string, ...any)) (string, error) {
	if !c.stale && c.path != "" {
		if _, err := os.Stat(c.path); err == nil {
			return c.path, nil
		}
		c.stale = true
	}
	return c.recreate(logf)
}

func (c *cacheDir) recreate(logf func(string, ...any)) (string, error) {
	c.closeWatch()

	base := os.TempDir()
	name := uuidTemplateName(c.template)
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("kittygfx: cachedir: mkdir %s: %w", dir, err)
	}
	c.path = dir
	c.stale = false

	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(dir); err == nil {
			c.watcher = w
			go c.watchLoop(logf)
		} else {
			w.Close()
		}
	}
	return c.path, nil
}

func (c *cacheDir) watchLoop(logf func(string, ...any)) {
	w := c.watcher
	if w == nil {
		return
	}
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				if ev.Name == c.path {
					c.stale = true
					if logf != nil {
						logf("cachedir: %s removed externally, marking stale", c.path)
					}
					return
				}
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *cacheDir) closeWatch() {
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
}

// removeAll removes the directory itself, used at shutdown.
func (c *cacheDir) removeAll() error {
	c.closeWatch()
	if c.path == "" {
		return nil
	}
	err := os.RemoveAll(c.path)
	c.path = ""
	c.stale = true
	return err
}

func frameFileName(imageID uint32, frameIndex int) string {
	return fmt.Sprintf("img-%03d-%03d", imageID, frameIndex)
}

func uuidTemplateName(template string) string {
	id := uuid.New().String()
	out := make([]byte, 0, len(template)+len(id))
	for i := 0; i < len(template); i++ {
		if template[i] == '*' {
			out = append(out, id...)
		} else {
			out = append(out, template[i])
		}
	}
	return string(out)
}
