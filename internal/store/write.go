package store

import (
	"context"
	"fmt"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same session
// twice is silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("write session: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, engine_path, label)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.EnginePath, sess.Label)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteMessage appends a message to its session's transcript.
// Uses ON CONFLICT(session_id, seq) DO NOTHING for idempotency - a message
// already recorded at that seq is kept and the duplicate ignored.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteMessage(ctx context.Context, msg Message) error {
	switch msg.Direction {
	case DirectionOut, DirectionIn:
	default:
		return fmt.Errorf("write message: invalid direction %q", msg.Direction)
	}

	argsJSON, err := marshalArgs(msg.Args)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages
		(session_id, seq, direction, flow_token, name, args, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		msg.SessionID,
		msg.Seq,
		string(msg.Direction),
		msg.FlowToken,
		msg.Name,
		argsJSON,
		msg.Text,
	)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
