package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OpIntegrity = "integrity"
	OpPresence  = "presence"

	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
)

var (
	Registry = prometheus.NewRegistry()

	CoverRepairs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Name:      "cover_repairs_total",
		Help:      "Album cover repair calls by operation and result.",
	}, []string{"op", "result"})

	StorageDeleteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gallery",
		Name:      "storage_delete_errors_total",
		Help:      "Stored files that could not be removed after their image was deleted.",
	})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Name:      "uploads_total",
		Help:      "Image uploads by result.",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(CoverRepairs, StorageDeleteErrors, Uploads)
	Registry.MustRegister(collectors.NewGoCollector())
}

// Handler exposes the registry in the Prometheus text format
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Router serves /metrics only, meant for a listener separate from the public API
func Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", Handler())
	return router
}
