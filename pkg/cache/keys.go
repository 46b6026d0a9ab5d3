package cache

// Cache key prefixes. Every mutation on a topic or report invalidates the
// matching prefixes; list reads are cached under them.
const (
	KeyTopic         = "topic"
	KeyEnrolledTopic = "enrolled_topics"
	KeyReport        = "report"
)
