// Package erroragent implements the out-of-core collaborator the
// orchestrator hands repair/delete/check intents to: an injected capability
// with method set {Send, Close} (spec §9 "Error-agent extensibility").
package erroragent

// Topic names the intent kind recorded against one raw key.
type Topic string

const (
	TopicDelete Topic = "delete"
	TopicRepair Topic = "repair"
	TopicCheck  Topic = "check"
)

// Record is one intent: a topic plus its JSON-encoded messages, matching
// the wire shape `{ topic, messages: [JSON string, ...] }` from spec §6.
type Record struct {
	Topic    Topic
	Messages []string
}

// Agent is the core's only dependency on the janitor side of the system. It
// makes no ordering, deduplication, or retry guarantees; the orchestrator
// only needs success/failure per Send call.
type Agent interface {
	Send(records []Record) error
	Close() error
}
