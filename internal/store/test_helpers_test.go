package store

import (
	"context"
	"testing"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession writes a session and returns it.
func createTestSession(t *testing.T, s *Store, id string) Session {
	t.Helper()
	sess := Session{ID: id, EnginePath: "bayes-cmd", Label: "test"}
	if err := s.WriteSession(context.Background(), sess); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}
	return sess
}

// createTestMessage creates an incoming message with minimal fields.
func createTestMessage(sessionID string, seq int64, name string, args ...string) Message {
	return Message{
		SessionID: sessionID,
		Seq:       seq,
		Direction: DirectionIn,
		Name:      name,
		Args:      args,
		Text:      name,
	}
}
