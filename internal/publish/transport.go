// Package publish executes topic plans against an MQTT broker. The
// transport is an interface so the reconciliation core stays testable
// without a broker and so the concrete client remains swappable.
package publish

import (
	"context"
	"time"
)

// Transport is the messaging surface the executor and planner depend
// on. Publish delivers one message; QueryRetained subscribes to a
// wildcard filter and returns the topics of retained messages seen
// within the timeout, up to maxMessages. Both are best-effort:
// QueryRetained returns whatever arrived before the deadline.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool, qos byte) error
	QueryRetained(ctx context.Context, filter string, timeout time.Duration, maxMessages int) ([]string, error)
}

// Summary reports one run's publication outcome. Each topic operation
// is independent, so failed counts individual topics, not the run.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
}
