package mqtt

import (
	"context"
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/glpdispatch/core/mqtt"
)

// MockPublisher records published messages; used in tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages []coremqtt.Message
	// FailTopics makes Publish fail for the given topics.
	FailTopics map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTopics: map[string]bool{}}
}

func (m *MockPublisher) Publish(_ context.Context, msg coremqtt.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[msg.Topic] {
		return fmt.Errorf("%s: %w", msg.Topic, coremqtt.ErrPublishFailed)
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Topics returns the topics of every recorded message in order.
func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Messages))
	for i, msg := range m.Messages {
		out[i] = msg.Topic
	}
	return out
}
