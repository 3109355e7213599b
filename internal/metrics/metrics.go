// Package metrics exposes Prometheus counters for KV and distributed
// column activity (SPEC_FULL.md §6), purely observational and never
// gating correctness.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clusterdf/ddf/pkg/log"
)

var (
	KVPutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ddf_kv_put_total",
		Help: "Total number of KV put operations handled by this node, local or forwarded.",
	})

	KVGetTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ddf_kv_get_total",
		Help: "Total number of KV get operations, labeled by result.",
	}, []string{"result"})

	ChunkFetchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ddf_chunk_fetch_total",
		Help: "Total number of distributed-column chunk fetches through the KV store.",
	})

	ChunkCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ddf_chunk_cache_total",
		Help: "Total number of distributed-column chunk cache lookups, labeled by result.",
	}, []string{"result"})
)

// ObserveGet increments KVGetTotal with the right "hit"/"miss" label.
func ObserveGet(hit bool) {
	if hit {
		KVGetTotal.WithLabelValues("hit").Inc()
	} else {
		KVGetTotal.WithLabelValues("miss").Inc()
	}
}

// ObserveChunkCache increments ChunkCacheTotal with the right label.
func ObserveChunkCache(hit bool) {
	if hit {
		ChunkCacheTotal.WithLabelValues("hit").Inc()
	} else {
		ChunkCacheTotal.WithLabelValues("miss").Inc()
	}
}

// Serve starts an HTTP server on addr exposing /metrics and /healthz. It
// runs until the process exits; callers that want it in the background
// should invoke it in a goroutine.
func Serve(addr string) error {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Infof("metrics: listening on %s", addr)
	return server.ListenAndServe()
}
