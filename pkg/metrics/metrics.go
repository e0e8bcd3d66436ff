package metrics

import "github.com/ServiceWeaver/weaver/metrics"

type RegionLabel struct {
	Region string
}

type OperationLabel struct {
	Region    string
	Operation string
}

var (
	// feed service
	CreatedPosts = metrics.NewCounterMap[RegionLabel](
		"sf_created_posts",
		"The number of created posts, retweets included, in the current region",
	)
	CreatedRetweets = metrics.NewCounterMap[RegionLabel](
		"sf_created_retweets",
		"The number of created retweets in the current region",
	)
	LikeToggles = metrics.NewCounterMap[RegionLabel](
		"sf_like_toggles",
		"The number of like toggles in the current region",
	)
	AddedComments = metrics.NewCounterMap[RegionLabel](
		"sf_added_comments",
		"The number of added comments in the current region",
	)
	RejectedOperations = metrics.NewCounterMap[OperationLabel](
		"sf_rejected_operations",
		"The number of feed operations rejected by validation, lookup or retweet rules",
	)
	SaveDurationMs = metrics.NewHistogramMap[RegionLabel](
		"sf_save_duration_ms",
		"Duration of whole-document saves in milliseconds in the current region",
		metrics.NonNegativeBuckets,
	)
	StorageFailures = metrics.NewCounterMap[OperationLabel](
		"sf_storage_failures",
		"The number of failed document loads and saves",
	)
	// event workers
	PublishedEvents = metrics.NewCounterMap[RegionLabel](
		"sf_published_events",
		"The number of feed events published to rabbitmq in the current region",
	)
	ReceivedEvents = metrics.NewCounterMap[RegionLabel](
		"sf_received_events",
		"The number of feed events received from rabbitmq in the current region",
	)
	QueueDurationMs = metrics.NewHistogramMap[RegionLabel](
		"sf_queue_duration_ms",
		"Duration between publishing and receiving a feed event in milliseconds",
		metrics.NonNegativeBuckets,
	)
	Inconsistencies = metrics.NewCounterMap[RegionLabel](
		"sf_inconsistencies",
		"The number of received events referencing a post the store does not know",
	)
)
