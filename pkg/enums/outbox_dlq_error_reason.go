package enums

// OutboxDLQErrorReason says why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var dlqErrorReasons = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool { return oneOf(r, dlqErrorReasons) }

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parse("outbox dlq error reason", value, dlqErrorReasons, true)
}
