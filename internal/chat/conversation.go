package chat

import (
	"strings"
	"sync"

	"github.com/nconklindev/sheetdiff/internal/llm"
)

// Conversation is the running history of one user's questions, answers and
// suggested follow-ups. It is safe for concurrent use.
type Conversation struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Messages returns a copy of the history, oldest first.
func (c *Conversation) Messages() []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]llm.Message(nil), c.messages...)
}

func (c *Conversation) Append(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, llm.Message{Role: role, Content: content})
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear drops the whole history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// truncate drops everything after the first n messages.
func (c *Conversation) truncate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}

// Transcript renders the history as "role: content" lines.
func (c *Conversation) Transcript() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines := make([]string, len(c.messages))
	for i, m := range c.messages {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
