package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"
)

var (
	// UploadsTotal counts successfully ingested images.
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_hosting_uploads_total",
		Help: "Number of successfully uploaded images.",
	})

	// DeletesTotal counts completed image deletions.
	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_hosting_deletes_total",
		Help: "Number of deleted images.",
	})

	// VariantCacheHits counts variant requests served from the cache.
	VariantCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_hosting_variant_cache_hits_total",
		Help: "Number of variant requests served from the cache.",
	})

	// VariantCacheMisses counts variant requests that triggered generation.
	VariantCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_hosting_variant_cache_misses_total",
		Help: "Number of variant requests that required generation.",
	})
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *ginext.Engine, path string) {
	handler := promhttp.Handler()
	router.GET(path, func(c *ginext.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	})
}
