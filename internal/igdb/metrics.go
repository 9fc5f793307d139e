package igdb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK       = "ok"
	outcomeCacheHit = "cache_hit"
	outcomeError    = "error"
)

var requestsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "igdb_requests_total",
		Help: "IGDB API queries by endpoint and outcome.",
	},
	[]string{"endpoint", "outcome"},
)
