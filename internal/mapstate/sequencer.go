package mapstate

import (
	"context"
	"sync"
)

// Intent names a kind of request. At most one request per intent is live.
type Intent string

const (
	IntentStatistics Intent = "statistics"
	IntentTree       Intent = "tree"
	IntentRecord     Intent = "record"
	IntentStyles     Intent = "styles"
)

type Token struct {
	intent Intent
	seq    uint64
}

// Sequencer hands out monotonically increasing tokens per intent. Beginning a
// new request cancels the previous one of the same intent, and only the
// latest token may commit its response.
type Sequencer struct {
	mu     sync.Mutex
	seq    map[Intent]uint64
	cancel map[Intent]context.CancelFunc
}

func NewSequencer() *Sequencer {
	return &Sequencer{
		seq:    make(map[Intent]uint64),
		cancel: make(map[Intent]context.CancelFunc),
	}
}

// Begin starts a request for intent and returns its context and token.
func (s *Sequencer) Begin(ctx context.Context, intent Intent) (context.Context, Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancel[intent]; ok {
		cancel()
	}
	s.seq[intent]++
	rctx, cancel := context.WithCancel(ctx)
	s.cancel[intent] = cancel
	return rctx, Token{intent: intent, seq: s.seq[intent]}
}

// Current reports whether t is still the latest token of its intent.
func (s *Sequencer) Current(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[t.intent] == t.seq
}

// Done releases the request context of t if no newer request replaced it.
func (s *Sequencer) Done(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[t.intent] != t.seq {
		return
	}
	if cancel, ok := s.cancel[t.intent]; ok {
		cancel()
		delete(s.cancel, t.intent)
	}
}
