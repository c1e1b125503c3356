package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func ExampleLedger_CheckAndMarkProcessed() {
	ctx := context.Background()
	ledger, _ := NewLedger(newMemoryStore(), 7*24*time.Hour)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	for range 2 {
		seen, _ := ledger.CheckAndMarkProcessed(ctx, "order-notifications", eventID)
		if seen {
			fmt.Println("already processed")
			continue
		}
		fmt.Println("processing event")
	}
	// Output:
	// processing event
	// already processed
}
