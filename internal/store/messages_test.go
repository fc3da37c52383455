package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

func TestWriteSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess := Session{ID: "s-1", EnginePath: "/opt/bayes-cmd", Label: "rain.net"}
	for i := 0; i < 2; i++ {
		if err := s.WriteSession(ctx, sess); err != nil {
			t.Fatalf("WriteSession() #%d failed: %v", i, err)
		}
	}

	got, err := s.ReadSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if got != sess {
		t.Errorf("ReadSession() = %+v, want %+v", got, sess)
	}
}

func TestWriteSession_EmptyID(t *testing.T) {
	s := createTestStore(t)
	if err := s.WriteSession(context.Background(), Session{}); err == nil {
		t.Error("expected error for empty id, got nil")
	}
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSession() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListSessions_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Errorf("ListSessions() on empty store = %v, want empty non-nil slice", sessions)
	}

	createTestSession(t, s, "0192-b")
	createTestSession(t, s, "0192-a")
	createTestSession(t, s, "0192-c")

	sessions, err = s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	var ids []string
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	if want := []string{"0192-a", "0192-b", "0192-c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	latest, err := s.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession() failed: %v", err)
	}
	if latest.ID != "0192-c" {
		t.Errorf("LatestSession().ID = %q, want %q", latest.ID, "0192-c")
	}
}

func TestLatestSession_Empty(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LatestSession(context.Background())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LatestSession() error = %v, want sql.ErrNoRows", err)
	}
}

func TestWriteMessage_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	want := Message{
		SessionID: "s-1",
		Seq:       1,
		Direction: DirectionOut,
		FlowToken: "flow-1",
		Name:      "load-file",
		Args:      []string{`C:\nets\a "b".net`, "T"},
		Text:      `(load-file "C:\\nets\\a \"b\".net" T)`,
	}
	if err := s.WriteMessage(ctx, want); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	got, err := s.ReadMessages(ctx, "s-1")
	if err != nil {
		t.Fatalf("ReadMessages() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(messages) = %d, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("message = %+v, want %+v", got[0], want)
	}
}

func TestWriteMessage_NoHTMLEscaping(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	if err := s.WriteMessage(ctx, createTestMessage("s-1", 1, "info", "a < b & c")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	var args string
	if err := s.db.QueryRow("SELECT args FROM messages").Scan(&args); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if want := `["a < b & c"]`; args != want {
		t.Errorf("args = %s, want %s", args, want)
	}
}

func TestWriteMessage_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	if err := s.WriteMessage(ctx, createTestMessage("s-1", 1, "info", "first")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}
	if err := s.WriteMessage(ctx, createTestMessage("s-1", 1, "info", "second")); err != nil {
		t.Fatalf("duplicate WriteMessage() should be ignored, got: %v", err)
	}

	got, err := s.ReadMessages(ctx, "s-1")
	if err != nil {
		t.Fatalf("ReadMessages() failed: %v", err)
	}
	if len(got) != 1 || got[0].Args[0] != "first" {
		t.Errorf("messages = %+v, want the first write only", got)
	}
}

func TestWriteMessage_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	bad := createTestMessage("s-1", 1, "info")
	bad.Direction = "sideways"
	if err := s.WriteMessage(ctx, bad); err == nil {
		t.Error("expected error for invalid direction, got nil")
	}

	if err := s.WriteMessage(ctx, createTestMessage("no-such-session", 1, "info")); err == nil {
		t.Error("expected foreign key error for unknown session, got nil")
	}
}

func TestReadMessages_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")
	createTestSession(t, s, "s-2")

	for _, seq := range []int64{3, 1, 2} {
		if err := s.WriteMessage(ctx, createTestMessage("s-1", seq, "info")); err != nil {
			t.Fatalf("WriteMessage() failed: %v", err)
		}
	}
	if err := s.WriteMessage(ctx, createTestMessage("s-2", 1, "info")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	got, err := s.ReadMessages(ctx, "s-1")
	if err != nil {
		t.Fatalf("ReadMessages() failed: %v", err)
	}
	var seqs []int64
	for _, m := range got {
		seqs = append(seqs, m.Seq)
	}
	if want := []int64{1, 2, 3}; !reflect.DeepEqual(seqs, want) {
		t.Errorf("seqs = %v, want %v", seqs, want)
	}

	last, err := s.GetLastSeq(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetLastSeq() failed: %v", err)
	}
	if last != 3 {
		t.Errorf("GetLastSeq() = %d, want 3", last)
	}

	empty, err := s.GetLastSeq(ctx, "none")
	if err != nil {
		t.Fatalf("GetLastSeq() failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("GetLastSeq() for unknown session = %d, want 0", empty)
	}
}

func TestFlowTokens(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "s-1")

	tagged := []struct {
		seq   int64
		token string
	}{
		{1, ""},
		{2, "flow-b"},
		{3, "flow-b"},
		{4, "flow-a"},
		{5, ""},
	}
	for _, m := range tagged {
		msg := createTestMessage("s-1", m.seq, "info")
		msg.FlowToken = m.token
		if err := s.WriteMessage(ctx, msg); err != nil {
			t.Fatalf("WriteMessage() failed: %v", err)
		}
	}

	tokens, err := s.ListFlowTokens(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListFlowTokens() failed: %v", err)
	}
	if want := []string{"flow-b", "flow-a"}; !reflect.DeepEqual(tokens, want) {
		t.Errorf("tokens = %v, want %v (order of first use)", tokens, want)
	}

	flow, err := s.ReadFlowMessages(ctx, "flow-b")
	if err != nil {
		t.Fatalf("ReadFlowMessages() failed: %v", err)
	}
	if len(flow) != 2 || flow[0].Seq != 2 || flow[1].Seq != 3 {
		t.Errorf("flow-b messages = %+v, want seq 2 and 3", flow)
	}
}

func TestMarshalArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "[]"},
		{[]string{}, "[]"},
		{[]string{"Rain", "0.2"}, `["Rain","0.2"]`},
		{[]string{`a"b\c`}, `["a\"b\\c"]`},
	}
	for _, tt := range tests {
		got, err := marshalArgs(tt.args)
		if err != nil {
			t.Fatalf("marshalArgs(%v) failed: %v", tt.args, err)
		}
		if got != tt.want {
			t.Errorf("marshalArgs(%v) = %s, want %s", tt.args, got, tt.want)
		}
		back, err := unmarshalArgs(got)
		if err != nil {
			t.Fatalf("unmarshalArgs(%s) failed: %v", got, err)
		}
		if len(back) != len(tt.args) {
			t.Errorf("unmarshalArgs(%s) = %v", got, back)
		}
	}

	if _, err := unmarshalArgs("{"); err == nil {
		t.Error("expected error for malformed JSON, got nil")
	}
}
