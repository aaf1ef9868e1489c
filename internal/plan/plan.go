// Package plan computes, for one run, the exact set of MQTT topics to
// write or delete. Three modes exist: publish (one monitoring cycle),
// host decommission, and component decommission. The planner only
// decides; executing the plan against the broker belongs to
// internal/publish.
package plan

// Op is the action to take on a topic.
type Op int

const (
	// OpWrite publishes a payload with the entry's retain flag.
	OpWrite Op = iota
	// OpDelete clears a retained message (empty retained publish).
	OpDelete
)

func (o Op) String() string {
	if o == OpDelete {
		return "delete"
	}
	return "write"
}

// Entry is one (topic, action) pair.
type Entry struct {
	Topic   string
	Op      Op
	Payload []byte
	Retain  bool
}

// Plan is an ordered, deduplicated set of entries. A topic appears at
// most once; the first action added for a topic wins, so overlapping
// enumeration sub-sets cannot hand the executor conflicting work.
type Plan struct {
	entries []Entry
	index   map[string]int
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{index: make(map[string]int)}
}

func (p *Plan) add(e Entry) {
	if _, ok := p.index[e.Topic]; ok {
		return
	}
	p.index[e.Topic] = len(p.entries)
	p.entries = append(p.entries, e)
}

// Write adds a retained or non-retained write for topic.
func (p *Plan) Write(topic string, payload []byte, retain bool) {
	p.add(Entry{Topic: topic, Op: OpWrite, Payload: payload, Retain: retain})
}

// Delete adds a retained-message deletion for topic.
func (p *Plan) Delete(topic string) {
	p.add(Entry{Topic: topic, Op: OpDelete, Retain: true})
}

// Entries returns the plan's entries in insertion order.
func (p *Plan) Entries() []Entry {
	return p.entries
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// Topics returns the topic names in insertion order.
func (p *Plan) Topics() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Topic
	}
	return out
}
