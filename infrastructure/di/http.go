package di

import (
	"net/http"

	"chatarchive/interfaces/http/rest"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler builds the REST router over the container
func (c *Container) HTTPHandler() http.Handler {
	opts := rest.Options{
		Tuning:     c.Tuning.Current,
		Ready:      c.Ready,
		EnableCORS: c.Config.EnableCORS,
	}
	if c.Config.EnableMetrics {
		opts.Metrics = c.Collector
		opts.MetricsHandler = promhttp.HandlerFor(c.Collector.Registry(), promhttp.HandlerOpts{})
	}
	return rest.NewRouter(c.CommandBus, c.QueryBus, c.Logger, opts).Setup()
}
