package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nconklindev/sheetdiff/internal/chat"
)

// Session is one uploaded source/target pair and the conversation about it.
type Session struct {
	ID         string
	CreatedAt  time.Time
	SourceName string
	TargetName string
	SourceSize int64
	TargetSize int64

	Subject      chat.Subject
	Conversation *chat.Conversation

	// convMu serializes questions and clears so answers land in the order
	// they were asked and never after a clear that followed them.
	convMu sync.Mutex

	noticeMu sync.Mutex
	notice   string
}

// ask puts one question to the assistant, waiting for any question or clear
// already in progress on this session.
func (s *Session) ask(ctx context.Context, a *chat.Assistant, query string) (chat.Exchange, error) {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	return a.Ask(ctx, s.Conversation, s.Subject, query)
}

// clear empties the conversation once any question in progress has its answer.
func (s *Session) clear() {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	s.Conversation.Clear()
}

// setNotice stores a message shown once on the next page view.
func (s *Session) setNotice(msg string) {
	s.noticeMu.Lock()
	s.notice = msg
	s.noticeMu.Unlock()
}

func (s *Session) takeNotice() string {
	s.noticeMu.Lock()
	defer s.noticeMu.Unlock()
	msg := s.notice
	s.notice = ""
	return msg
}

// Store keeps sessions in memory. When full, the oldest session is evicted.
type Store struct {
	mu       sync.RWMutex
	max      int
	sessions map[string]*Session
	order    []string
}

func NewStore(max int) *Store {
	if max <= 0 {
		max = 1
	}
	return &Store{
		max:      max,
		sessions: make(map[string]*Session),
	}
}

// Add assigns s a new ID and stores it.
func (st *Store) Add(s *Session) *Session {
	s.ID = uuid.NewString()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Conversation == nil {
		s.Conversation = chat.NewConversation()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	for len(st.order) >= st.max {
		oldest := st.order[0]
		st.order = st.order[1:]
		delete(st.sessions, oldest)
	}
	st.sessions[s.ID] = s
	st.order = append(st.order, s.ID)
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
