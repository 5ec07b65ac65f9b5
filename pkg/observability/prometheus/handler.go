package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// FastHTTPHandler serves the metrics gathered by gatherer in the Prometheus text format.
// A nil gatherer uses prometheus.DefaultGatherer.
func FastHTTPHandler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// NewMetricsServer returns a fasthttp server exposing gatherer on path.
// Every other path gets 404.
func NewMetricsServer(gatherer prometheus.Gatherer, path string) *fasthttp.Server {
	metrics := FastHTTPHandler(gatherer)
	return &fasthttp.Server{
		Name: "lightpool",
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != path {
				ctx.Error("not found", fasthttp.StatusNotFound)
				return
			}
			metrics(ctx)
		},
	}
}
