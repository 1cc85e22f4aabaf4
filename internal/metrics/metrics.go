package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	renderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svg2pptx",
			Name:      "render_attempts_total",
			Help:      "Page render attempts by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	renderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "svg2pptx",
			Name:      "render_duration_seconds",
			Help:      "Duration of page render attempts by strategy",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svg2pptx",
			Name:      "conversions_total",
			Help:      "Conversions by result (success, failed, write_failed)",
		},
		[]string{"result"},
	)

	conversionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "svg2pptx",
			Name:      "conversion_duration_seconds",
			Help:      "End-to-end conversion duration",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	pagesConverted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "svg2pptx",
			Name:      "pages_converted_total",
			Help:      "Total pages that made it into a package",
		},
	)

	breakerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svg2pptx",
			Name:      "breaker_events_total",
			Help:      "Strategy breaker events by strategy and action",
		},
		[]string{"strategy", "action"},
	)

	complexityScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "svg2pptx",
			Name:      "complexity_score",
			Help:      "Distribution of analyzed complexity scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
		},
	)

	activeJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "svg2pptx",
			Name:      "active_jobs",
			Help:      "Conversion jobs currently in flight",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(renderAttempts, renderLatency, conversions,
		conversionLatency, pagesConverted, breakerEvents, complexityScores, activeJobs)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRender(strategy, result string, dur time.Duration) {
	renderAttempts.WithLabelValues(strategy, result).Inc()
	renderLatency.WithLabelValues(strategy).Observe(dur.Seconds())
}

func ObserveConversion(result string, pages int, dur time.Duration) {
	conversions.WithLabelValues(result).Inc()
	conversionLatency.Observe(dur.Seconds())
	if result == "success" {
		pagesConverted.Add(float64(pages))
	}
}

func ObserveComplexity(score float64) { complexityScores.Observe(score) }

func BreakerOpened(strategy string) { breakerEvents.WithLabelValues(strategy, "opened").Inc() }
func BreakerClosed(strategy string) { breakerEvents.WithLabelValues(strategy, "closed").Inc() }

func JobStarted()  { activeJobs.Inc() }
func JobFinished() { activeJobs.Dec() }
