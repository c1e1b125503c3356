package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregatePaymentAttempt OutboxAggregateType = "payment_attempt"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregatePaymentAttempt}

func (a OutboxAggregateType) IsValid() bool { return oneOf(a, aggregateTypes) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, aggregateTypes, false)
}

// OutboxEventType names a domain event carried through the outbox. It is
// also the event_type attribute on the published Pub/Sub message.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventPaymentAttemptFailed  OutboxEventType = "payment_attempt_failed"
	EventPaymentAttemptExpired OutboxEventType = "payment_attempt_expired"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventPaymentAttemptFailed,
	EventPaymentAttemptExpired,
}

func (e OutboxEventType) IsValid() bool { return oneOf(e, outboxEventTypes) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, outboxEventTypes, true)
}
