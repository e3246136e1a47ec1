// Package prompt is the single input-or-timeout primitive used for operator
// questions. When no interactive input is attached every question resolves
// to its default immediately.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ErrNotInteractive is returned by questions that have no sensible default.
var ErrNotInteractive = errors.New("no interactive input available")

// ErrInvalidChoice is returned by Select when the answer is not one of the options.
var ErrInvalidChoice = errors.New("invalid choice")

// ErrInterrupted is returned when a newer question took over the input.
var ErrInterrupted = errors.New("question interrupted by another prompt")

type line struct {
	text string
	err  error
	at   time.Time
}

type outcome int

const (
	answered outcome = iota
	defaulted
	interrupted
	canceled
)

// pending is the question currently waiting for input.
type pending struct {
	cancel      context.CancelFunc
	done        chan struct{}
	interrupted bool
}

// Prompter reads answers from one input stream. A reader goroutine reads a
// line only while a question is waiting; lines typed before the current
// question was printed are discarded. A new question interrupts the pending
// one, so a shutdown question never waits behind a menu.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	start sync.Once
	want  chan struct{}
	lines chan line

	mu        sync.Mutex
	cur       *pending
	requested bool
}

// New returns a prompter over in/out. interactive=false makes every question
// take its default without reading.
func New(in io.Reader, out io.Writer, interactive bool) *Prompter {
	if out == nil {
		out = io.Discard
	}
	return &Prompter{in: in, out: out, interactive: interactive && in != nil}
}

// Stdio returns a prompter on the process stdin/stdout, interactive only when
// stdin is a terminal.
func Stdio() *Prompter {
	return New(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

// NonInteractive returns a prompter that never reads.
func NonInteractive(out io.Writer) *Prompter { return New(nil, out, false) }

// Interactive reports whether questions will actually wait for input.
func (p *Prompter) Interactive() bool { return p != nil && p.interactive }

func (p *Prompter) startReader() {
	p.start.Do(func() {
		p.want = make(chan struct{}, 1)
		p.lines = make(chan line, 1)
		go func() {
			defer close(p.lines)
			br := bufio.NewReader(p.in)
			var readErr error
			for range p.want {
				if readErr != nil {
					p.lines <- line{err: readErr, at: time.Now()}
					return
				}
				s, err := br.ReadString('\n')
				if s == "" && err != nil {
					p.lines <- line{err: err, at: time.Now()}
					return
				}
				readErr = err
				p.lines <- line{text: strings.TrimRight(s, "\r\n"), at: time.Now()}
			}
		}()
	})
}

// request asks the reader for one more line unless a request is outstanding.
func (p *Prompter) request() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requested {
		return
	}
	p.requested = true
	select {
	case p.want <- struct{}{}:
	default:
	}
}

// takeOver makes me the current question, interrupting and waiting out any
// question still pending.
func (p *Prompter) takeOver(me *pending) {
	p.mu.Lock()
	prev := p.cur
	p.cur = me
	if prev != nil {
		prev.interrupted = true
	}
	p.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
	}
}

func (p *Prompter) release(me *pending) {
	p.mu.Lock()
	if p.cur == me {
		p.cur = nil
	}
	p.mu.Unlock()
	close(me.done)
}

func (p *Prompter) ask(ctx context.Context, question string, timeout time.Duration) (string, outcome) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	qctx, cancel := context.WithCancel(ctx)
	defer cancel()
	me := &pending{cancel: cancel, done: make(chan struct{})}
	p.takeOver(me)
	defer p.release(me)

	p.startReader()
	fmt.Fprint(p.out, question)
	asked := time.Now()
	for {
		p.request()
		select {
		case l, open := <-p.lines:
			p.mu.Lock()
			p.requested = false
			p.mu.Unlock()
			if !open || l.err != nil {
				fmt.Fprintln(p.out)
				return "", defaulted
			}
			if l.at.Before(asked) {
				continue
			}
			return strings.TrimSpace(l.text), answered
		case <-expired:
			fmt.Fprintln(p.out, "\n(timed out, using default)")
			return "", defaulted
		case <-qctx.Done():
			fmt.Fprintln(p.out)
			p.mu.Lock()
			intr := me.interrupted
			p.mu.Unlock()
			if intr {
				return "", interrupted
			}
			return "", canceled
		}
	}
}

// AskWithTimeout prints question and waits for one line of input.
// ok is false when input is not interactive, the timeout elapses, ctx ends,
// a newer question interrupts this one or the input stream is closed or
// unreadable. timeout <= 0 waits without limit. The deadline runs from the
// call, not from when the question gets the input.
func (p *Prompter) AskWithTimeout(ctx context.Context, question string, timeout time.Duration) (answer string, ok bool) {
	if !p.Interactive() {
		fmt.Fprintf(p.out, "%s (no interactive input, using default)\n", question)
		return "", false
	}
	a, o := p.ask(ctx, question, timeout)
	return a, o == answered
}

// Confirm asks a yes/no question. Only an explicit y/yes or n/no overrides def.
func (p *Prompter) Confirm(ctx context.Context, question string, def bool, timeout time.Duration) bool {
	hint := " (y/N): "
	if def {
		hint = " (Y/n): "
	}
	a, ok := p.AskWithTimeout(ctx, question+hint, timeout)
	if !ok {
		return def
	}
	switch strings.ToLower(a) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}

// Line asks for free text without a deadline; an empty answer yields def.
func (p *Prompter) Line(ctx context.Context, question, def string) (string, error) {
	q := question + ": "
	if def != "" {
		q = fmt.Sprintf("%s [%s]: ", question, def)
	}
	if !p.Interactive() {
		fmt.Fprintf(p.out, "%s(no interactive input, using default)\n", q)
		return def, nil
	}
	a, o := p.ask(ctx, q, 0)
	if err := outcomeErr(ctx, o); err != nil {
		return "", err
	}
	if a == "" {
		return def, nil
	}
	return a, nil
}

// Select prints a numbered list and returns the zero-based index chosen.
func (p *Prompter) Select(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, ErrInvalidChoice
	}
	if !p.Interactive() {
		return -1, ErrNotInteractive
	}
	fmt.Fprintln(p.out, title)
	for i, opt := range options {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, opt)
	}
	a, o := p.ask(ctx, fmt.Sprintf("Select (1-%d): ", len(options)), 0)
	if err := outcomeErr(ctx, o); err != nil {
		return -1, err
	}
	n, err := strconv.Atoi(a)
	if err != nil || n < 1 || n > len(options) {
		return -1, fmt.Errorf("%w: %q", ErrInvalidChoice, a)
	}
	return n - 1, nil
}

func outcomeErr(ctx context.Context, o outcome) error {
	switch o {
	case interrupted:
		return ErrInterrupted
	case canceled:
		return ctx.Err()
	case defaulted:
		return io.ErrUnexpectedEOF
	}
	return nil
}
