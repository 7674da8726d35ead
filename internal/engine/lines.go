package engine

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/fakeyudi/elizabet/internal/assistant"
)

// ErrExhausted is returned by Lines.Start once its input has ended.
var ErrExhausted = errors.New("transcript input exhausted")

// Lines reads one utterance per line from a reader. A line starting with
// "~" is an interim result, "!" reports an engine error with the rest of the
// line as the reason, and any other non-blank line is a final result.
type Lines struct {
	in io.Reader

	once  sync.Once
	lines chan string
	eof   chan struct{}

	mu        sync.Mutex
	stop      chan struct{}
	running   bool
	exhausted bool
	done      chan struct{}
	closed    bool
	// pending holds lines read by a run that was stopped before it could
	// deliver them. The next run delivers them first.
	pending []string
}

// NewLines returns an engine reading from in.
func NewLines(in io.Reader) *Lines {
	return &Lines{
		in:    in,
		lines: make(chan string),
		eof:   make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Done is closed once the input has been read to the end and every line
// has been delivered.
func (l *Lines) Done() <-chan struct{} { return l.done }

func (l *Lines) Start(cb assistant.Callbacks) error {
	l.mu.Lock()
	if l.exhausted && len(l.pending) == 0 {
		l.mu.Unlock()
		return ErrExhausted
	}
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	stop := make(chan struct{})
	l.stop = stop
	l.mu.Unlock()

	// One reader goroutine serves every run of the engine.
	l.once.Do(func() { go l.read() })

	if cb.OnStart != nil {
		cb.OnStart()
	}
	go l.run(cb, stop)
	return nil
}

func (l *Lines) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.running = false
		close(l.stop)
	}
	return nil
}

func (l *Lines) read() {
	scanner := bufio.NewScanner(l.in)
	for scanner.Scan() {
		l.lines <- scanner.Text()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.exhausted = true
	close(l.eof)
	l.finishLocked()
}

// finishLocked closes done once no run loop is left to deliver lines.
func (l *Lines) finishLocked() {
	if l.exhausted && !l.running && !l.closed && len(l.pending) == 0 {
		l.closed = true
		close(l.done)
	}
}

func (l *Lines) run(cb assistant.Callbacks, stop chan struct{}) {
	defer func() {
		l.mu.Lock()
		if l.stop == stop {
			l.running = false
		}
		l.mu.Unlock()
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
		l.mu.Lock()
		l.finishLocked()
		l.mu.Unlock()
	}()

	for {
		line, ok, stopped := l.next(stop)
		if stopped {
			return
		}
		if ok {
			deliver(cb, line)
			continue
		}
		select {
		case <-stop:
			return
		case <-l.eof:
			if l.hasPending() {
				continue
			}
			return
		case line := <-l.lines:
			if !l.accept(line, stop) {
				return
			}
			deliver(cb, line)
		}
	}
}

// next pops the oldest pending line unless stop is closed.
func (l *Lines) next(stop chan struct{}) (line string, ok, stopped bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if isClosed(stop) {
		return "", false, true
	}
	if len(l.pending) == 0 {
		return "", false, false
	}
	line = l.pending[0]
	l.pending = l.pending[1:]
	return line, true, false
}

// accept reports whether line may be delivered by the run owning stop. A
// line read after the run was stopped is kept for the next run.
func (l *Lines) accept(line string, stop chan struct{}) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if isClosed(stop) {
		l.pending = append(l.pending, line)
		return false
	}
	return true
}

func (l *Lines) hasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func deliver(cb assistant.Callbacks, line string) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return
	case strings.HasPrefix(line, "!"):
		if cb.OnError != nil {
			cb.OnError(strings.TrimSpace(line[1:]))
		}
	case strings.HasPrefix(line, "~"):
		if cb.OnResult != nil {
			cb.OnResult(assistant.Interim(strings.TrimSpace(line[1:])))
		}
	default:
		if cb.OnResult != nil {
			cb.OnResult(assistant.Final(line))
		}
	}
}
