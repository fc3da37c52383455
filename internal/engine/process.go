package engine

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/roach88/bayes/internal/config"
)

// readSize is the buffer used for each read from the engine's pipes.
const readSize = 4096

// chunkBuffer is how many unread chunks a pipe may queue before its reader
// blocks.
const chunkBuffer = 64

// Conn is the byte-level link to a running engine.
//
// Write sends bytes to the engine's stdin. Output and Errors deliver raw
// chunks read from stdout and stderr and are closed when those streams end.
// CloseInput closes stdin. Wait blocks until the engine has exited; it must
// only be called once both channels are drained.
type Conn interface {
	io.Writer
	Output() <-chan []byte
	Errors() <-chan []byte
	CloseInput() error
	Wait() error
}

// Process is a Conn backed by an operating system process.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   chan []byte
	errs  chan []byte
	wg    sync.WaitGroup

	waitOnce sync.Once
	waitErr  error
}

// StartProcess launches the engine described by cfg and returns once the
// operating system reports it started. The process is killed if ctx is
// cancelled.
func StartProcess(ctx context.Context, cfg config.EngineConfig) (*Process, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty engine path", ErrStart)
	}

	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	cmd.Dir = cfg.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %w", ErrStart, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrStart, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrStart, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStart, cfg.Path, err)
	}

	p := &Process{
		cmd:   cmd,
		stdin: stdin,
		out:   make(chan []byte, chunkBuffer),
		errs:  make(chan []byte, chunkBuffer),
	}

	p.wg.Add(2)
	go p.read(stdout, p.out)
	go p.read(stderr, p.errs)

	return p, nil
}

// read copies chunks from r onto ch until r ends, then closes ch.
func (p *Process) read(r io.Reader, ch chan<- []byte) {
	defer p.wg.Done()
	defer close(ch)

	buf := make([]byte, readSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			ch <- chunk
		}
		if err != nil {
			return
		}
	}
}

// Write sends b to the engine's stdin.
func (p *Process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// Output returns the stdout chunk channel.
func (p *Process) Output() <-chan []byte { return p.out }

// Errors returns the stderr chunk channel.
func (p *Process) Errors() <-chan []byte { return p.errs }

// CloseInput closes the engine's stdin.
func (p *Process) CloseInput() error {
	return p.stdin.Close()
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait waits for both readers to finish and then for the process to exit.
// It is safe to call more than once.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		p.wg.Wait()
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}
