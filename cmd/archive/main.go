package main

import (
	"context"
	"os"
	"sync"

	"chatarchive/infrastructure/config"
	"chatarchive/infrastructure/di"

	"github.com/charmbracelet/fang"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()

	a := newApp(config.LoadConfig)
	rootCmd := NewRootCmd(version, a)
	err := fang.Execute(ctx, rootCmd)
	a.Close()
	if err != nil {
		os.Exit(1)
	}
}

// app builds the container on first use so that --help and --version never
// touch a backend.
type app struct {
	load func() (*config.Config, error)

	once      sync.Once
	container *di.Container
	cleanup   func()
	err       error
}

func newApp(load func() (*config.Config, error)) *app {
	return &app{load: load}
}

// Container returns the shared dependency container
func (a *app) Container(ctx context.Context) (*di.Container, error) {
	a.once.Do(func() {
		cfg, err := a.load()
		if err != nil {
			a.err = err
			return
		}
		a.container, a.cleanup, a.err = di.InitializeContainer(ctx, cfg)
	})
	return a.container, a.err
}

// Close releases the container if it was built
func (a *app) Close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}
