package pipeline

import (
	"sync"

	"github.com/strandbio/duplex/read"
)

// testSink records every message pushed into it.
type testSink struct {
	mu         sync.Mutex
	messages   []read.Message
	terminated bool
}

func (s *testSink) Push(m read.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

func (s *testSink) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
}

func (s *testSink) all() []read.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]read.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *testSink) reads() []*read.Read {
	var rs []*read.Read
	for _, m := range s.all() {
		if r, ok := m.(*read.Read); ok {
			rs = append(rs, r)
		}
	}
	return rs
}
