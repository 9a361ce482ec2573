package di

import (
	domainconfig "chatarchive/domain/config"
	"chatarchive/infrastructure/config"
)

// Tuning serves the live domain configuration. Without a tuning file it is
// static and OnChange callbacks never fire.
type Tuning struct {
	watcher *config.TuningWatcher
	static  *domainconfig.DomainConfig
}

// NewStaticTuning wraps a fixed configuration
func NewStaticTuning(cfg *domainconfig.DomainConfig) *Tuning {
	return &Tuning{static: cfg}
}

// Current returns the active configuration
func (t *Tuning) Current() *domainconfig.DomainConfig {
	if t.watcher != nil {
		return t.watcher.Current()
	}
	return t.static
}

// OnChange registers fn for hot reloads
func (t *Tuning) OnChange(fn func(*domainconfig.DomainConfig)) {
	if t.watcher != nil {
		t.watcher.OnChange(fn)
	}
}

// Stop ends file watching
func (t *Tuning) Stop() {
	if t.watcher != nil {
		t.watcher.Stop()
	}
}
