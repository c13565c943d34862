package chat

import (
	"sync"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
)

// Transcript is the inbound message log of one mounted video, in receipt order.
// It is append-only: no ids, no deduplication, no reordering.
type Transcript struct {
	mu   sync.RWMutex
	msgs []domain.ChatMessage
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(msg domain.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, msg)
}

// Messages returns a copy of the log.
func (t *Transcript) Messages() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
