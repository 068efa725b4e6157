package speech

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order, including timers
// scheduled by the ones that fire.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// harness is a Platform whose recognizers record their lifecycle and flag
// any start made while the other role's recognizer is still running.
type harness struct {
	mu        sync.Mutex
	supported bool
	created   []*mockRecognizer
	running   [2]*mockRecognizer
	overlap   bool
	startErrs [2][]error
	createErr error
}

type mockRecognizer struct {
	h       *harness
	opts    RecognizerOptions
	started bool
	stopped bool
	aborted bool
}

func newHarness() *harness {
	return &harness{supported: true}
}

func (h *harness) Supported() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.supported
}

func (h *harness) NewRecognizer(opts RecognizerOptions) (Recognizer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return nil, h.createErr
	}
	r := &mockRecognizer{h: h, opts: opts}
	h.created = append(h.created, r)
	return r, nil
}

func (r *mockRecognizer) Start() error {
	h := r.h
	h.mu.Lock()
	defer h.mu.Unlock()
	role := r.opts.Role
	if errs := h.startErrs[role]; len(errs) > 0 {
		h.startErrs[role] = errs[1:]
		return errs[0]
	}
	if h.running[role.other()] != nil {
		h.overlap = true
	}
	h.running[role] = r
	r.started = true
	return nil
}

func (r *mockRecognizer) Stop() error {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	r.stopped = true
	if r.h.running[r.opts.Role] == r {
		r.h.running[r.opts.Role] = nil
	}
	return nil
}

func (r *mockRecognizer) Abort() error {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	r.aborted = true
	if r.h.running[r.opts.Role] == r {
		r.h.running[r.opts.Role] = nil
	}
	return nil
}

func (h *harness) live(role Role) *mockRecognizer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running[role]
}

func (h *harness) latest(role Role) *mockRecognizer {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.created) - 1; i >= 0; i-- {
		if h.created[i].opts.Role == role {
			return h.created[i]
		}
	}
	return nil
}

func (h *harness) count(role Role) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.created {
		if r.opts.Role == role {
			n++
		}
	}
	return n
}

func (h *harness) bothLive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running[RoleBackground] != nil && h.running[RoleActive] != nil
}

func (h *harness) overlapped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.overlap
}

func (r *mockRecognizer) event(kind EventKind) Event {
	return Event{Role: r.opts.Role, Generation: r.opts.Generation, Kind: kind}
}

func (r *mockRecognizer) result(text string, final bool) Event {
	ev := r.event(EventResult)
	ev.Transcript = text
	ev.Final = final
	return ev
}

func (r *mockRecognizer) failure(code ErrorCode) Event {
	ev := r.event(EventError)
	ev.ErrorCode = code
	return ev
}

type transition struct {
	from, to State
	code     ErrorCode
}

type recordingListener struct {
	mu          sync.Mutex
	transitions []transition
	transcripts []string
	processed   []int
	procErrs    []error
}

func (l *recordingListener) OnStateChange(from, to State, err *RecognitionError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tr := transition{from: from, to: to}
	if err != nil {
		tr.code = err.Code
	}
	l.transitions = append(l.transitions, tr)
}

func (l *recordingListener) OnTranscript(text string, _ bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transcripts = append(l.transcripts, text)
}

func (l *recordingListener) OnProcessed(tasks int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processed = append(l.processed, tasks)
	l.procErrs = append(l.procErrs, err)
}

func (l *recordingListener) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []State
	for _, tr := range l.transitions {
		out = append(out, tr.to)
	}
	return out
}

func (l *recordingListener) processedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processed)
}

type stubProcessor struct {
	mu    sync.Mutex
	texts []string
	tasks int
	err   error
}

func (p *stubProcessor) Process(_ context.Context, text string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	return p.tasks, p.err
}

func (p *stubProcessor) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

type fixture struct {
	session  *Session
	platform *harness
	clock    *fakeClock
	listener *recordingListener
	proc     *stubProcessor
}

func newFixture(alwaysListening bool) *fixture {
	f := &fixture{
		platform: newHarness(),
		clock:    &fakeClock{},
		listener: &recordingListener{},
		proc:     &stubProcessor{tasks: 2},
	}
	f.session = New(Config{WakeWord: "Hey Assistant", AlwaysListening: alwaysListening},
		f.platform, f.proc,
		WithClock(f.clock),
		WithListener(f.listener),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return f
}
