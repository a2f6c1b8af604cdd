// Package metrics holds the Prometheus collectors shared by the client packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "connectedcars"

var (
	// LoginAttempts counts authentication exchanges by outcome (success|rejected|transport|invalid).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Authentication exchanges with the auth endpoint by outcome",
	}, []string{"outcome"})

	// SnapshotFetches counts bulk vehicle queries by outcome (active|idle|failed).
	SnapshotFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_fetches_total",
		Help:      "Bulk vehicle snapshot fetches by outcome",
	}, []string{"outcome"})

	// SnapshotHits counts snapshot reads served from the cache.
	SnapshotHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_cache_hits_total",
		Help:      "Snapshot reads served without a fetch",
	})

	// GraphqlRequests counts GraphQL POSTs by status class (2xx|4xx|5xx|transport).
	GraphqlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graphql_requests_total",
		Help:      "GraphQL requests by HTTP status class",
	}, []string{"class"})
)

// StatusClass maps an HTTP status code to the label used by GraphqlRequests.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	}
	return "5xx"
}
