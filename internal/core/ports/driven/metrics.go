package driven

import "time"

// MetricsRecorder receives operational counters.
type MetricsRecorder interface {
	// DocumentIngested records one document outcome ("ok" or "failed").
	DocumentIngested(outcome string, chunks int, forced int, elapsed time.Duration)

	// PromotionAttempted records a promotion outcome
	// ("promoted", "edited", "denied", "refused", "conflict").
	PromotionAttempted(outcome string)

	// OracleCalled records an oracle call outcome and latency.
	OracleCalled(outcome string, elapsed time.Duration)

	// LookupServed records a lookup outcome ("found" or "not_found").
	LookupServed(outcome string)
}
