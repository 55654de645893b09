package enums

// OutboxDLQErrorReason records why the publisher parked an event in the
// dead-letter table instead of retrying it.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts marks events that exhausted their retry budget.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable marks events rejected before any publish
	// attempt, such as unknown event types or undecodable payloads.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var dlqErrorReasons = map[OutboxDLQErrorReason]struct{}{
	OutboxDLQReasonMaxAttempts:  {},
	OutboxDLQReasonNonRetryable: {},
}

// IsValid reports whether r is a recognized dead-letter reason.
func (r OutboxDLQErrorReason) IsValid() bool {
	_, ok := dlqErrorReasons[r]
	return ok
}
