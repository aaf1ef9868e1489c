package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nugget/winsense/internal/plan"
)

type fakeTransport struct {
	published []publishCall
	failOn    map[string]bool
	queries   int
}

type publishCall struct {
	topic   string
	payload string
	retain  bool
	qos     byte
}

func (f *fakeTransport) Publish(_ context.Context, topic string, payload []byte, retain bool, qos byte) error {
	f.published = append(f.published, publishCall{topic, string(payload), retain, qos})
	if f.failOn[topic] {
		return errors.New("broker rejected publish")
	}
	return nil
}

func (f *fakeTransport) QueryRetained(context.Context, string, time.Duration, int) ([]string, error) {
	f.queries++
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecute_WritesAndDeletes(t *testing.T) {
	tr := &fakeTransport{}
	p := plan.NewPlan()
	p.Write("windows/pc1/system/cpu_load", []byte("12.5"), true)
	p.Delete("homeassistant/sensor/pc1/stale/config")

	s := Executor{Transport: tr, QoS: 1, Logger: testLogger()}.Execute(context.Background(), p)

	if s != (Summary{Attempted: 2, Succeeded: 2, Failed: 0}) {
		t.Errorf("Summary = %+v, want 2/2/0", s)
	}
	if len(tr.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(tr.published))
	}

	write := tr.published[0]
	if write.payload != "12.5" || !write.retain || write.qos != 1 {
		t.Errorf("write call = %+v", write)
	}

	// Deletes clear the retained message: empty payload, retain=true.
	del := tr.published[1]
	if del.payload != "" || !del.retain {
		t.Errorf("delete call = %+v, want empty retained publish", del)
	}
}

func TestExecute_PartialFailureContinues(t *testing.T) {
	tr := &fakeTransport{failOn: map[string]bool{"b": true}}
	p := plan.NewPlan()
	p.Delete("a")
	p.Delete("b")
	p.Delete("c")

	s := Executor{Transport: tr, QoS: 1, Logger: testLogger()}.Execute(context.Background(), p)

	if s != (Summary{Attempted: 3, Succeeded: 2, Failed: 1}) {
		t.Errorf("Summary = %+v, want 3/2/1", s)
	}
	if len(tr.published) != 3 {
		t.Errorf("a failed topic must not halt the run; published %d of 3", len(tr.published))
	}
}

func TestExecute_ComponentDecommissionScenario(t *testing.T) {
	// Decommissioning component samsung_hd103si_s1vsjd1zb07989 with force
	// yields exactly two delete actions, both succeeding.
	tr := &fakeTransport{}
	p := plan.NewPlan()
	p.Delete("homeassistant/sensor/samsung_hd103si_s1vsjd1zb07989_health/config")
	p.Delete("homeassistant/sensor/samsung_hd103si_s1vsjd1zb07989_operational_status/config")

	s := Executor{Transport: tr, QoS: 1, Logger: testLogger()}.Execute(context.Background(), p)

	if s != (Summary{Attempted: 2, Succeeded: 2, Failed: 0}) {
		t.Errorf("Summary = %+v, want {attempted:2 succeeded:2 failed:0}", s)
	}
}

func TestExecute_EmptyPlan(t *testing.T) {
	tr := &fakeTransport{}
	s := Executor{Transport: tr, QoS: 1, Logger: testLogger()}.Execute(context.Background(), plan.NewPlan())
	if s != (Summary{}) {
		t.Errorf("Summary = %+v, want zero", s)
	}
	if len(tr.published) != 0 {
		t.Errorf("empty plan must not touch the transport")
	}
}
