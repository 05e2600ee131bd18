package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequests           = "reco_requests_total"
	MetricNameRequestDuration    = "reco_request_duration_seconds"
	MetricNameCacheHits          = "reco_cache_hits_total"
	MetricNameCacheMisses        = "reco_cache_misses_total"
	MetricNameCacheInvalidations = "reco_cache_invalidations_total"
	MetricNameFeedback           = "reco_feedback_total"
	MetricNameEmbeddingsCreated  = "reco_embeddings_created_total"
	MetricNameEmbeddingErrors    = "reco_embedding_provider_errors_total"
	MetricNameEmbeddingDuration  = "reco_embedding_duration_seconds"
	MetricNameBackfillProcessed  = "reco_backfill_items_total"
)

// Attribute keys.
const (
	AttrFeedType     = "feed_type"
	AttrFeedbackType = "feedback_type"
	AttrContentType  = "content_type"
	AttrStatus       = "status"
)

// Attribute values are bounded by construction: feed types, feedback types,
// and content types are closed enums validated at the API edge. Anything else
// is normalized to "other" to keep cardinality flat.

var allowedFeedTypes = map[string]bool{
	"posts":  true,
	"papers": true,
	"mixed":  true,
}

var allowedFeedbackTypes = map[string]bool{
	"positive":       true,
	"negative":       true,
	"not_interested": true,
}

var allowedContentTypes = map[string]bool{
	"post":         true,
	"paper":        true,
	"user_profile": true,
}

// NormalizeFeedType returns feedType if allowed, otherwise "other".
func NormalizeFeedType(feedType string) string {
	if allowedFeedTypes[feedType] {
		return feedType
	}

	return "other"
}

// NormalizeFeedbackType returns feedbackType if allowed, otherwise "other".
func NormalizeFeedbackType(feedbackType string) string {
	if allowedFeedbackTypes[feedbackType] {
		return feedbackType
	}

	return "other"
}

// NormalizeContentType returns contentType if allowed, otherwise "other".
func NormalizeContentType(contentType string) string {
	if allowedContentTypes[contentType] {
		return contentType
	}

	return "other"
}
