package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "switchboard_pipeline_duration_seconds",
		Help:    "End-to-end pipeline latency by outcome.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"outcome"})

	extractionStrategies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_extraction_strategy_total",
		Help: "Extraction outcomes by winning strategy (fallback counts as its own).",
	}, []string{"strategy"})

	dedupeHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "switchboard_dedupe_hits_total",
		Help: "Uploads short-circuited by a cached result.",
	})

	lettersGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_letters_generated_total",
		Help: "Letters generated by path.",
	}, []string{"path"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switchboard_rejections_total",
		Help: "Pipeline rejections by error kind.",
	}, []string{"kind"})
)
