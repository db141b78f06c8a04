package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// minPoll bounds how often pending files are checked against the settle
// period.
const minPoll = 50 * time.Millisecond

// watch keeps processing new or changed media files under the folder until
// ctx is cancelled. A file is processed once both its last event and its
// modification time are older than the settle period. Events are handled on
// the calling goroutine; files are still processed one at a time.
func (p *processor) watch(ctx context.Context) error {
	log := p.deps.Log

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	pending := make(map[string]time.Time)
	if err := p.addTree(w, p.cfg.Folder, pending); err != nil {
		return err
	}

	settle := p.cfg.Settle
	poll := settle / 2
	if poll < minPoll {
		poll = minPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	log.Info("Watching %s for new files (settle %s)", p.cfg.Folder, settle)

	for {
		select {
		case <-ctx.Done():
			log.Info("Watch stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			p.handleEvent(w, ev, pending)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watch error: %v", err)

		case <-ticker.C:
			p.flushPending(ctx, pending, settle)
		}
	}
}

func (p *processor) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, pending map[string]time.Time) {
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		delete(pending, ev.Name)
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	fi, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if fi.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := p.addTree(w, ev.Name, pending); err != nil {
				p.deps.Log.Warn("Cannot watch %s: %v", ev.Name, err)
			}
		}
		return
	}
	if IsMediaFile(ev.Name) {
		pending[ev.Name] = time.Now()
	}
}

// addTree watches root and every directory below it, and queues media files
// that were never processed or changed since. This also catches files that
// arrived between discovery and the watch starting.
func (p *processor) addTree(w *fsnotify.Watcher, root string, pending map[string]time.Time) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return skipUnreadable(root, path, d, err, p.warnUnreadable)
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if d.Type().IsRegular() && IsMediaFile(path) && p.changed(path) {
			pending[path] = time.Now()
		}
		return nil
	})
}

// changed reports whether path differs from what this run last saw of it.
func (p *processor) changed(path string) bool {
	seen, ok := p.done[path]
	if !ok {
		return true
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !fi.ModTime().Equal(seen)
}

// flushPending processes every settled file in sorted order.
func (p *processor) flushPending(ctx context.Context, pending map[string]time.Time, settle time.Duration) {
	now := time.Now()
	var ready []string
	for path, last := range pending {
		if now.Sub(last) < settle {
			continue
		}
		fi, err := os.Stat(path)
		if err != nil {
			delete(pending, path)
			continue
		}
		if now.Sub(fi.ModTime()) < settle {
			continue
		}
		ready = append(ready, path)
	}
	sort.Strings(ready)

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		delete(pending, path)
		if !p.changed(path) {
			continue
		}
		p.resolver.Claim(path)
		p.processFile(ctx, path, 0, 0)
	}
}
