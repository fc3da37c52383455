package store

import (
	"context"
	"fmt"

	"github.com/roach88/bayes/internal/protocol"
	"github.com/roach88/bayes/internal/sexp"
	"github.com/roach88/bayes/internal/wire"
)

// ReplayResult summarizes a replay.
type ReplayResult struct {
	SessionID string `json:"session_id"`
	Commands  int    `json:"commands"`
	Events    int    `json:"events"`
	LastSeq   int64  `json:"last_seq"`
}

// Replay feeds a recorded session through ctrl in recording order:
// commands go to Controller.Replay under their recorded flow token, events
// go to Controller.Handle. Nothing is sent to an engine.
//
// Replaying the same session into fresh controllers produces the same
// network, posteriors and algorithm list every time.
func (s *Store) Replay(ctx context.Context, sessionID string, ctrl *protocol.Controller) (ReplayResult, error) {
	result := ReplayResult{SessionID: sessionID}

	messages, err := s.ReadMessages(ctx, sessionID)
	if err != nil {
		return result, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch msg.Direction {
		case DirectionOut:
			exprs, err := sexp.ParseAll([]byte(msg.Text))
			if err != nil || len(exprs) != 1 {
				return result, fmt.Errorf("replay %s: seq %d: unreadable command %q", sessionID, msg.Seq, msg.Text)
			}
			if err := ctrl.Replay(exprs[0], msg.FlowToken); err != nil {
				return result, fmt.Errorf("replay %s: seq %d: %w", sessionID, msg.Seq, err)
			}
			result.Commands++
		case DirectionIn:
			ctrl.Handle(wire.Event{Name: msg.Name, Args: msg.Args})
			result.Events++
		}
		result.LastSeq = msg.Seq
	}

	return result, nil
}
