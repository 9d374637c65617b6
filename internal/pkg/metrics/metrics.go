package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignaturesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoenixscope_signatures_processed_total",
		Help: "Transaction signatures walked by the ingestion loop",
	}, []string{"outcome"})

	FillsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phoenixscope_fills_persisted_total",
		Help: "Fill events written to the store",
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phoenixscope_decode_failures_total",
		Help: "Transactions whose event log could not be decoded",
	})

	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phoenixscope_store_write_failures_total",
		Help: "Fill rows that failed to persist",
	})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoenixscope_queries_total",
		Help: "OHLC queries by outcome",
	}, []string{"outcome"})

	AdmissionRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phoenixscope_admission_rejects_total",
		Help: "Requests rejected by admission control",
	}, []string{"reason"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phoenixscope_request_duration_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
