package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	domainconfig "chatarchive/domain/config"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 100 * time.Millisecond

// TuningWatcher reloads the tuning file when it changes and hands the new
// domain configuration to every registered callback. Invalid edits are
// logged and ignored; the last good configuration stays active.
type TuningWatcher struct {
	path     string
	base     *domainconfig.DomainConfig
	debounce time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	current   *domainconfig.DomainConfig
	callbacks []func(*domainconfig.DomainConfig)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewTuningWatcher starts watching path. base supplies values the file omits.
func NewTuningWatcher(path string, base *domainconfig.DomainConfig, logger *zap.Logger) (*TuningWatcher, error) {
	initial, err := LoadTuning(path, base)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &TuningWatcher{
		path:     filepath.Clean(path),
		base:     base,
		debounce: defaultDebounce,
		logger:   logger,
		current:  initial,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Tuning hot reload enabled", zap.String("file", path))
	return w, nil
}

// Current returns the active configuration
func (w *TuningWatcher) Current() *domainconfig.DomainConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback run after every successful reload
func (w *TuningWatcher) OnChange(fn func(*domainconfig.DomainConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop ends watching and waits for the loop to exit
func (w *TuningWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
	})
}

func (w *TuningWatcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *TuningWatcher) reload() {
	next, err := LoadTuning(w.path, w.base)
	if err != nil {
		w.logger.Warn("Ignoring tuning change", zap.String("file", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.current
	if *prev == *next {
		w.mu.Unlock()
		return
	}
	w.current = next
	callbacks := append([]func(*domainconfig.DomainConfig){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("Tuning reloaded",
		zap.Float64("threshold", next.Scoring.SimilarityThreshold),
		zap.Duration("detectionTimeout", next.Detection.Timeout),
	)
	for _, fn := range callbacks {
		fn(next)
	}
}
