// Package filewatch reports debounced changes to a single file.
//
// The parent directory is watched rather than the file itself so atomic
// rename-over writes (editors, storage.writeAtomic) keep being observed.
package filewatch

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "classhud/pkg/logx"
)

const (
	DefaultDebounce = 250 * time.Millisecond

	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

type Options struct {
	Debounce time.Duration
	Log      logx.Logger
}

// Watch calls onChange (from a timer goroutine) after path settles following
// a write, create, rename, remove or chmod. Bursts within the debounce
// window collapse into one call. If fsnotify breaks, the watcher is
// recreated with jittered backoff. Watch returns nil when ctx ends.
func Watch(ctx context.Context, path string, opt Options, onChange func()) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	delay := opt.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	trigger := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			if ctx.Err() == nil {
				onChange()
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sleep := func(reason string, err error) bool {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		backoff = min(backoff*2, restartBackoffMax)
		log.Warn(reason, logx.Err(err), logx.String("dir", dir), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
			return true
		}
	}

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			if !sleep("watch init failed", err) {
				return nil
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			if !sleep("watch add failed", err) {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		log.Debug("watcher started", logx.String("dir", dir), logx.String("file", file))

		if !run(ctx, w, file, trigger, log) {
			_ = w.Close()
			return nil
		}
		_ = w.Close()
		if !sleep("watcher stopped; restarting", nil) {
			return nil
		}
	}
	return nil
}

// run pumps events until ctx ends (false) or the watcher breaks (true).
func run(ctx context.Context, w *fsnotify.Watcher, file string, trigger func(), log logx.Logger) bool {
	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove | fsnotify.Chmod
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-w.Events:
			if !ok {
				return true
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) && ev.Op&ops != 0 {
				log.Debug("change detected", logx.String("file", file), logx.String("op", ev.Op.String()))
				trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return true
			}
			if err == nil {
				continue
			}
			msg := strings.ToLower(err.Error())
			// Overflow means events may be lost; reload once and keep going.
			if strings.Contains(msg, "overflow") {
				log.Warn("watch overflow; forcing reload", logx.Err(err))
				trigger()
				continue
			}
			log.Warn("watch error", logx.Err(err))
			if strings.Contains(msg, "closed") {
				return true
			}
		}
	}
}
