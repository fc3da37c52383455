package testutil

import (
	"sync"

	"github.com/roach88/bayes/internal/sexp"
	"github.com/roach88/bayes/internal/wire"
)

// fakeBuffer is the capacity of the fake output channels. Replies are queued
// synchronously from Write, so the buffer must hold a whole scripted reply.
const fakeBuffer = 4096

// FakeEngine is a scripted in-memory engine. It satisfies engine.Conn.
//
// Commands written to it are parsed and recorded. When a command matches a
// name registered with On, the registered reply texts are queued on the
// output channel, split into chunks of ChunkSize bytes when ChunkSize > 0.
// Closing input ends both output streams, like a real engine exiting on
// EOF.
//
// Thread-safety: FakeEngine is safe for concurrent use via internal mutex.
type FakeEngine struct {
	// ChunkSize splits every reply into pieces of at most this many bytes.
	ChunkSize int

	// ExitErr is returned by Wait.
	ExitErr error

	mu       sync.Mutex
	parser   sexp.Parser
	replies  map[string][]string
	received []wire.Event
	out      chan []byte
	errs     chan []byte
	ended    bool
}

// NewFakeEngine creates a fake engine with no scripted replies.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		replies: make(map[string][]string),
		out:     make(chan []byte, fakeBuffer),
		errs:    make(chan []byte, fakeBuffer),
	}
}

// On registers reply texts to emit whenever a command named name arrives.
// Calling On again for the same name replaces the replies.
//
// Example:
//
//	fake.On("load-file", "(node-name Rain)", "(load-file-done)")
func (f *FakeEngine) On(name string, replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[name] = replies
}

// Write records the commands in b and queues their scripted replies.
func (f *FakeEngine) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, expr := range f.parser.Feed(b) {
		ev, ok := wire.Decode(expr)
		if !ok {
			continue
		}
		f.received = append(f.received, ev)
		for _, reply := range f.replies[ev.Name] {
			f.emitLocked(f.out, reply+"\n")
		}
	}
	return len(b), nil
}

// Emit queues raw text on stdout without waiting for a command.
func (f *FakeEngine) Emit(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitLocked(f.out, text)
}

// EmitError queues raw text on stderr.
func (f *FakeEngine) EmitError(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitLocked(f.errs, text)
}

func (f *FakeEngine) emitLocked(ch chan []byte, text string) {
	if f.ended {
		return
	}
	data := []byte(text)
	size := f.ChunkSize
	if size <= 0 {
		size = len(data)
	}
	for len(data) > 0 {
		n := min(size, len(data))
		ch <- data[:n]
		data = data[n:]
	}
}

// Output returns the stdout chunk channel.
func (f *FakeEngine) Output() <-chan []byte { return f.out }

// Errors returns the stderr chunk channel.
func (f *FakeEngine) Errors() <-chan []byte { return f.errs }

// CloseInput ends both output streams.
func (f *FakeEngine) CloseInput() error {
	f.Exit()
	return nil
}

// Exit ends both output streams as if the engine died. Queued chunks are
// still delivered.
func (f *FakeEngine) Exit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended {
		return
	}
	f.ended = true
	close(f.out)
	close(f.errs)
}

// Pending returns the number of queued chunks not yet read from either
// stream.
func (f *FakeEngine) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out) + len(f.errs)
}

// Wait returns ExitErr.
func (f *FakeEngine) Wait() error { return f.ExitErr }

// Received returns the commands written so far, decoded.
func (f *FakeEngine) Received() []wire.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Event, len(f.received))
	copy(out, f.received)
	return out
}

// ReceivedNames returns the names of the commands written so far.
func (f *FakeEngine) ReceivedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.received))
	for i, ev := range f.received {
		names[i] = ev.Name
	}
	return names
}
