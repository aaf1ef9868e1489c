package publish

import (
	"context"
	"log/slog"

	"github.com/nugget/winsense/internal/plan"
)

// defaultProgressEvery is the coarse progress interval for long runs; a
// host decommission can span hundreds of topics.
const defaultProgressEvery = 25

// Executor drives a plan against the transport, one topic at a time.
// No retries: a failed topic is counted and reported, and the caller
// may re-run the whole cycle later — every action recomputes from
// current state, so repeats are safe.
type Executor struct {
	Transport Transport
	QoS       byte
	Logger    *slog.Logger

	// ProgressEvery overrides the progress log interval; 0 means the
	// default.
	ProgressEvery int
}

// Execute applies every entry of p. Write entries publish the payload
// with the entry's retain flag; Delete entries publish an empty retained
// payload, which clears the broker's retained message for the topic.
func (e Executor) Execute(ctx context.Context, p *plan.Plan) Summary {
	every := e.ProgressEvery
	if every <= 0 {
		every = defaultProgressEvery
	}

	var s Summary
	total := p.Len()
	for _, entry := range p.Entries() {
		s.Attempted++

		var payload []byte
		retain := entry.Retain
		if entry.Op == plan.OpWrite {
			payload = entry.Payload
		} else {
			retain = true
		}

		if err := e.Transport.Publish(ctx, entry.Topic, payload, retain, e.QoS); err != nil {
			s.Failed++
			e.Logger.Warn("topic operation failed",
				"op", entry.Op.String(), "topic", entry.Topic, "error", err)
		} else {
			s.Succeeded++
			e.Logger.Debug("topic operation complete",
				"op", entry.Op.String(), "topic", entry.Topic)
		}

		if s.Attempted%every == 0 {
			e.Logger.Info("progress", "done", s.Attempted, "total", total, "failed", s.Failed)
		}
	}

	e.Logger.Info("run complete",
		"attempted", s.Attempted, "succeeded", s.Succeeded, "failed", s.Failed)
	return s
}
