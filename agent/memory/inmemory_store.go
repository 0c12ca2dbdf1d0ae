package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/BaSui01/devcrew/types"
)

type session struct {
	messages []types.Message
	notes    map[string]string
}

// InMemoryStore 进程内会话记忆，适合本地开发与测试
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxMessages int
}

// NewInMemoryStore creates a store. maxMessages <= 0 keeps every message.
func NewInMemoryStore(maxMessages int) *InMemoryStore {
	return &InMemoryStore{
		sessions:    make(map[string]*session),
		maxMessages: maxMessages,
	}
}

func (s *InMemoryStore) session(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{notes: make(map[string]string)}
		s.sessions[id] = sess
	}
	return sess
}

func (s *InMemoryStore) AppendMessage(ctx context.Context, sessionID string, msg types.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg.Metadata = msg.Metadata.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID)
	sess.messages = append(sess.messages, msg)
	if s.maxMessages > 0 && len(sess.messages) > s.maxMessages {
		sess.messages = slices.Clone(sess.messages[len(sess.messages)-s.maxMessages:])
	}
	return nil
}

func (s *InMemoryStore) Messages(ctx context.Context, sessionID string) ([]types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return slices.Clone(sess.messages), nil
}

func (s *InMemoryStore) SaveNote(ctx context.Context, sessionID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID).notes[key] = value
	return nil
}

func (s *InMemoryStore) Note(ctx context.Context, sessionID, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	value, ok := sess.notes[key]
	if !ok {
		return "", ErrNoteNotFound
	}
	return value, nil
}

func (s *InMemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
