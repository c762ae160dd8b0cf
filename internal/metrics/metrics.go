// Package metrics provides the centralized Prometheus metrics registry for
// the fund analytics core.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	NavPointsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundsight",
		Name:      "nav_points_ingested_total",
		Help:      "Total number of NAV observations fetched from providers",
	})
	ProviderFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundsight",
		Name:      "provider_failures_total",
		Help:      "Total number of failed provider requests",
	})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundsight",
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of provider circuit breaker trips",
	})
)

// Gauge metrics
var (
	NavCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fundsight",
		Name:      "nav_cache_hit_ratio",
		Help:      "Hit ratio of the NAV provider cache",
	})
	CategoryUniverseSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fundsight",
		Name:      "category_universe_size",
		Help:      "Number of funds in each scored category",
	}, []string{"category"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(NavPointsIngestedTotal)
		registry.MustRegister(ProviderFailuresTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)

		// Register gauge metrics
		registry.MustRegister(NavCacheHitRatio)
		registry.MustRegister(CategoryUniverseSize)

		// Register scoring metrics
		registry.MustRegister(FundsScoredTotal)
		registry.MustRegister(ScoringDuration)
		registry.MustRegister(FundTotalScore)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(BacktestRebalanceCount)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordNavPointsIngested records NAV observations fetched from a provider.
func RecordNavPointsIngested(count int) {
	NavPointsIngestedTotal.Add(float64(count))
}

// RecordProviderFailure records a failed provider request.
func RecordProviderFailure() {
	ProviderFailuresTotal.Inc()
}

// RecordCircuitBreakerTrip records a provider circuit breaker trip.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// UpdateCategoryUniverseSize updates the fund count gauge for a category.
func UpdateCategoryUniverseSize(category string, count float64) {
	CategoryUniverseSize.WithLabelValues(category).Set(count)
}
