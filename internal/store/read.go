package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadSession retrieves a session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, engine_path, label FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.EnginePath, &sess.Label)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns every session, oldest first.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, engine_path, label FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.EnginePath, &sess.Label); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently started session.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, engine_path, label FROM sessions
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&sess.ID, &sess.EnginePath, &sess.Label)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ReadMessages returns a session's transcript in recording order
// (ORDER BY seq ASC).
//
// Returns an empty slice (not nil) if the session has no messages.
func (s *Store) ReadMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, direction, flow_token, name, args, text
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return scanMessages(rows)
}

// ReadFlowMessages returns every message tagged with flowToken, in
// recording order.
func (s *Store) ReadFlowMessages(ctx context.Context, flowToken string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, direction, flow_token, name, args, text
		FROM messages
		WHERE flow_token = ?
		ORDER BY session_id COLLATE BINARY ASC, seq ASC
	`, flowToken)
	if err != nil {
		return nil, fmt.Errorf("query flow messages: %w", err)
	}
	return scanMessages(rows)
}

// ListFlowTokens returns the distinct flow tokens of a session in the order
// the flows started.
func (s *Store) ListFlowTokens(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_token FROM messages
		WHERE session_id = ? AND flow_token != ''
		GROUP BY flow_token
		ORDER BY MIN(seq) ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list flow tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan flow token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow tokens: %w", err)
	}
	return tokens, nil
}

// GetLastSeq returns the highest seq recorded for a session, 0 if none.
// Used to continue a session's logical clock.
func (s *Store) GetLastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var (
			msg       Message
			direction string
			argsJSON  string
		)
		if err := rows.Scan(&msg.SessionID, &msg.Seq, &direction, &msg.FlowToken, &msg.Name, &argsJSON, &msg.Text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		args, err := unmarshalArgs(argsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan message %d: %w", msg.Seq, err)
		}
		msg.Direction = Direction(direction)
		msg.Args = args
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
