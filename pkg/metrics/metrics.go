package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_cache_hits_total",
		Help: "Conversation cache lookups that returned an entry.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_cache_misses_total",
		Help: "Conversation cache lookups that found no entry.",
	})

	BackgroundRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_background_refreshes_total",
		Help: "Silent history refreshes triggered by the staleness policy.",
	})

	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_refresh_failures_total",
		Help: "Background refreshes that failed and kept the cached state.",
	})

	MessagesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_messages_merged_total",
		Help: "Messages folded into the cache by the merge engine.",
	})

	Evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_cache_evictions_total",
		Help: "Conversation entries removed by the eviction sweep.",
	})

	OptimisticSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_optimistic_sends_total",
		Help: "Outbound messages inserted optimistically before confirmation.",
	})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_send_failures_total",
		Help: "Optimistic sends rolled back after a failed network call.",
	})

	ReadReceipts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_read_receipts_total",
		Help: "Remote read-receipt events applied to cached messages.",
	})

	MarkReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minglr_chat_mark_read_failures_total",
		Help: "Best-effort mark-as-read calls that were swallowed.",
	})
)
