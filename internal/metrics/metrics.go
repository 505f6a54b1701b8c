// Package metrics declares every Prometheus series the services export.
// Each is a package-level var registered via promauto at import time, the
// same pattern the teacher uses for DBQueryDuration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreQueryDuration measures ArticleStore/StateStore calls. The
// 'backend' label distinguishes postgres/elasticsearch/redis, 'operation'
// the call made against it.
var StoreQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "store_query_duration_seconds",
		Help:    "Duration of store operations in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	},
	[]string{"backend", "operation"},
)

// DedupCacheResult counts DedupCache lookups by outcome: hit, miss, or
// error (the cache is soft-fail, so an error here never blocks ingestion).
var DedupCacheResult = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dedup_cache_result_total",
		Help: "DedupCache lookups by outcome",
	},
	[]string{"result"},
)

// ConsumerInFlight reports the current size of a Consumer's in-flight
// registry, the live analogue of the bounded semaphore's used slots.
var ConsumerInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "consumer_in_flight_messages",
		Help: "Number of messages currently held by the in-flight registry",
	},
	[]string{"topic"},
)

// ConsumerMessagesTotal counts messages the consumer has finished
// handling, by topic and outcome ("handled" or "handler_failed_but_acked";
// both outcomes are acked).
var ConsumerMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "consumer_messages_total",
		Help: "Messages processed by the consumer loop",
	},
	[]string{"topic", "outcome"},
)

// DispatcherQueueDepth reports how many tasks are queued or running in
// a Dispatcher's bounded pool.
var DispatcherQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "dispatcher_queue_depth",
		Help: "Tasks queued or running in the dispatcher pool",
	},
	[]string{"pool"},
)

// LLMCallDuration measures latency of calls to an LLMProvider, labeled
// by provider and call. The adapters label every call "complete"; intent,
// synthesis and analysis calls are not told apart.
var LLMCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "llm_call_duration_seconds",
		Help:    "Duration of LLM provider calls in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	},
	[]string{"provider", "call"},
)

// PollCycleArticlesFound counts raw articles a poll cycle saw per
// source, before dedup filtering.
var PollCycleArticlesFound = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "poll_cycle_articles_found_total",
		Help: "Articles observed per content source poll cycle",
	},
	[]string{"source"},
)

// PollCycleArticlesIngested counts articles per source for which the
// Ingester returned no error. Articles the Ingester skipped as duplicates
// also return no error, so they are counted too.
var PollCycleArticlesIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "poll_cycle_articles_ingested_total",
		Help: "Articles handed to the Ingester without error, duplicates included",
	},
	[]string{"source"},
)
