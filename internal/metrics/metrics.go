package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoquery_queries_total",
		Help: "Total compiled queries by executor and outcome",
	}, []string{"executor", "outcome"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoquery_query_duration_ms",
		Help:    "Executor duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 15000},
	}, []string{"executor"})
	StatementTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_statement_timeouts_total",
		Help: "Total spatial statements cancelled by statement_timeout",
	})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_geocode_requests_total",
		Help: "Total geocoder REST requests",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_geocode_fail_total",
		Help: "Total geocoder REST failures",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoquery_geocode_duration_ms",
		Help:    "Geocoder REST call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_geocode_cache_hits_total",
		Help: "Total geocode cache hits",
	})
	GeocodeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_geocode_cache_misses_total",
		Help: "Total geocode cache misses",
	})
	RoutingRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_routing_requests_total",
		Help: "Total routing REST requests",
	})
	RoutingFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_routing_fail_total",
		Help: "Total routing REST failures",
	})
	RoutingDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoquery_routing_duration_ms",
		Help:    "Routing REST call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	})
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoquery_resolutions_total",
		Help: "Entity resolutions by match type",
	}, []string{"match_type"})
	CategoryTierTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoquery_category_tier_total",
		Help: "Category index lookups by matching tier",
	}, []string{"tier"})
	ParseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoquery_parse_total",
		Help: "Parsed sentences by strategy and relation",
	}, []string{"strategy", "relation"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoquery_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(StatementTimeoutsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeCacheMissesTotal)
	prometheus.MustRegister(RoutingRequestsTotal)
	prometheus.MustRegister(RoutingFailTotal)
	prometheus.MustRegister(RoutingDurationMs)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(CategoryTierTotal)
	prometheus.MustRegister(ParseTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// Handler：返回 Prometheus 指标处理器，由主入口挂载到 {API_BASE}/metrics
func Handler() http.Handler { return promhttp.Handler() }
