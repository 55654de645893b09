package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type exampleStore struct {
	seen map[string]bool
}

func (s *exampleStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "bt:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.seen, k)
	}
	return nil
}

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{seen: map[string]bool{}}, 7*24*time.Hour)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	for _, delivery := range []string{"first delivery", "redelivery"} {
		already, _ := manager.CheckAndMarkProcessed(ctx, "stock-alerts", eventID)
		if already {
			fmt.Println(delivery + ": skipped")
			continue
		}
		fmt.Println(delivery + ": handled")
	}
	// Output:
	// first delivery: handled
	// redelivery: skipped
}
