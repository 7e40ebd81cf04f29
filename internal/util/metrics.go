package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_sessions_started_total",
		Help: "Total number of restock sessions started",
	})

	SessionsFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_sessions_finalized_total",
		Help: "Total number of restock sessions committed for email generation",
	})

	SessionsDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restock_sessions_discarded_total",
		Help: "Total number of deleted restock sessions",
	}, []string{"status"})

	SessionItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_session_items_added_total",
		Help: "Total number of items added to sessions",
	})

	SessionItemsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_session_items_removed_total",
		Help: "Total number of items removed from sessions",
	})

	SessionOperationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restock_session_operation_failed_total",
		Help: "Total number of failed session operations",
	}, []string{"operation", "reason"})

	CatalogEntriesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restock_catalog_entries_created_total",
		Help: "Total number of products and suppliers created from session items",
	}, []string{"entity"})

	CatalogCleanupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restock_catalog_cleanup_total",
		Help: "Outcome of orphan cleanup checks after item removal",
	}, []string{"entity", "result"})

	CatalogCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "restock_catalog_cache_lookups_total",
		Help: "Redis catalog cache lookups",
	}, []string{"entity", "result"})

	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "restock_store_operation_latency_seconds",
		Help:    "Latency of catalog and session store calls made by the session manager",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	EmailDraftsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_email_drafts_generated_total",
		Help: "Total number of supplier email drafts generated",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
