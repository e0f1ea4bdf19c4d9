package syndication

import "sync"

// MessageSink receives human-readable status messages for the user.
type MessageSink interface {
	AddMessage(msg string)
}

// MessageSet is a MessageSink that keeps distinct messages in arrival order.
// The zero value is ready to use.
type MessageSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

// AddMessage implements MessageSink.
func (s *MessageSet) AddMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[msg]; ok {
		return
	}
	s.seen[msg] = struct{}{}
	s.order = append(s.order, msg)
}

// Messages returns the collected messages.
func (s *MessageSet) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.order...)
}
