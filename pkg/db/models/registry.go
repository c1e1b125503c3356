package models

// All lists every persisted model, in dependency order, for AutoMigrate in sqlite mode.
func All() []any {
	return []any{
		&Product{},
		&ProductAddition{},
		&ProductSubtraction{},
		&Order{},
		&OrderItem{},
		&PaymentAttempt{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
