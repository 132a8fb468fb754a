package erroragent

import "sync"

// Memory is the in-memory test double named in spec §9: a mutable
// NextErr field plus an in-memory topic log, for use in orchestrator
// scenario tests (S1-S6).
type Memory struct {
	mu      sync.Mutex
	NextErr error // if set, the next Send call fails with this error and clears it
	log     map[Topic][]string
}

func NewMemory() *Memory {
	return &Memory{log: make(map[Topic][]string)}
}

func (m *Memory) Send(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NextErr != nil {
		err := m.NextErr
		m.NextErr = nil
		return err
	}
	for _, r := range records {
		m.log[r.Topic] = append(m.log[r.Topic], r.Messages...)
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Messages returns a copy of everything recorded under topic, for test
// assertions.
func (m *Memory) Messages(topic Topic) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.log[topic]))
	copy(out, m.log[topic])
	return out
}
