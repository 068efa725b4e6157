package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Default delays between recognizer stop and start.
const (
	DefaultSwitchDelay     = 300 * time.Millisecond
	DefaultCooldownDelay   = 1200 * time.Millisecond
	DefaultRestartDelay    = 1000 * time.Millisecond
	DefaultMaxStartRetries = 3
)

// Config holds session settings.
type Config struct {
	WakeWord        string
	AlwaysListening bool
	Lang            string

	// SwitchDelay separates stopping the background recognizer from starting the active one.
	SwitchDelay time.Duration
	// CooldownDelay is waited after processing before background listening resumes.
	CooldownDelay time.Duration
	// RestartDelay is waited before restarting a recognizer that ended or failed to start.
	RestartDelay time.Duration
	// MaxStartRetries bounds consecutive already-started retries per recognizer.
	MaxStartRetries int
}

func (c Config) withDefaults() Config {
	if c.Lang == "" {
		c.Lang = "en-US"
	}
	if c.SwitchDelay <= 0 {
		c.SwitchDelay = DefaultSwitchDelay
	}
	if c.CooldownDelay <= 0 {
		c.CooldownDelay = DefaultCooldownDelay
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = DefaultRestartDelay
	}
	if c.MaxStartRetries <= 0 {
		c.MaxStartRetries = DefaultMaxStartRetries
	}
	return c
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the clock used for delays.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithListener sets the listener notified of state, transcript and processing results.
func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is the speech capture state machine for one client.
//
// Every input (recognizer callbacks, user commands, timer expiries, processing
// results) is posted to a single queue and applied run-to-completion, so the
// fields below the queue are only ever touched by one goroutine at a time.
// Inputs posted while the queue is being drained (including from Listener
// callbacks) are appended and run after the current one finishes.
type Session struct {
	cfg       Config
	platform  Platform
	processor Processor
	listener  Listener
	clock     Clock
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	qmu      sync.Mutex
	queue    []func()
	draining bool
	closed   bool

	// mu guards the fields read by the accessors.
	mu      sync.RWMutex
	state   State
	final   []string
	interim string
	lastErr *RecognitionError

	// Owned by the event loop.
	detector        *WakeWordDetector
	alwaysListening bool
	recs            [2]Recognizer
	gens            [2]uint64
	retries         [2]int
	timer           Timer
	timerSeq        uint64
	procSeq         uint64
	resumeState     State
}

// New creates a session in the Idle state. Call Start to begin listening.
func New(cfg Config, platform Platform, processor Processor, opts ...Option) *Session {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		cfg:             cfg,
		platform:        platform,
		processor:       processor,
		listener:        nopListener{},
		clock:           realClock{},
		logger:          slog.Default(),
		ctx:             ctx,
		cancel:          cancel,
		state:           StateIdle,
		detector:        NewWakeWordDetector(cfg.WakeWord),
		alwaysListening: cfg.AlwaysListening,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks platform support and, when always-listening is on, starts
// background listening. An unsupported platform puts the session in demo mode.
func (s *Session) Start() {
	s.post(func() {
		if s.state != StateIdle {
			return
		}
		s.idle()
	})
}

// Dispatch feeds a recognizer callback into the session. Invalid events and
// events from recognizers that are no longer live are dropped.
func (s *Session) Dispatch(ev Event) {
	if err := ev.Validate(); err != nil {
		s.logger.Warn("dropping recognizer event", "error", err)
		return
	}
	s.post(func() { s.handleEvent(ev) })
}

// StartListening switches to active listening on user request.
func (s *Session) StartListening() {
	s.post(func() {
		switch s.state {
		case StateIdle, StateBackgroundListening:
			s.activate()
		default:
			s.logger.Debug("start listening ignored", "state", s.state)
		}
	})
}

// StopListening ends the utterance on user confirmation and processes what was heard.
func (s *Session) StopListening() {
	s.post(func() {
		if s.state != StateActiveListening {
			s.logger.Debug("stop listening ignored", "state", s.state)
			return
		}
		s.cancelTimer()
		s.stopRecognizer(RoleActive, false)
		s.finishUtterance()
	})
}

// SubmitText processes manually entered text. It is accepted in every state
// except Processing, so typing is always available as a fallback.
func (s *Session) SubmitText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.post(func() {
		if s.state == StateProcessing {
			s.logger.Debug("text submission ignored while processing")
			return
		}
		resume := StateIdle
		if s.state == StateDemoMode || s.state == StateFailed {
			resume = StateDemoMode
		}
		s.cancelTimer()
		s.abortAll()
		s.clearBuffer()
		s.process(text, resume)
	})
}

// RetryMicrophone leaves demo mode and attempts active listening again.
func (s *Session) RetryMicrophone() {
	s.post(func() {
		if s.state != StateDemoMode && s.state != StateFailed {
			return
		}
		s.setError(nil)
		s.retries = [2]int{}
		if !s.platform.Supported() {
			s.fail(NewRecognitionError(CodeUnsupported))
			return
		}
		s.activate()
	})
}

// SetWakeWord replaces the wake word.
func (s *Session) SetWakeWord(phrase string) {
	s.post(func() {
		s.detector.SetPhrase(phrase)
	})
}

// SetAlwaysListening turns background listening on or off.
func (s *Session) SetAlwaysListening(enabled bool) {
	s.post(func() {
		if s.alwaysListening == enabled {
			return
		}
		s.alwaysListening = enabled
		switch {
		case enabled && s.state == StateIdle:
			s.cancelTimer()
			s.startRecognizer(RoleBackground)
		case !enabled && s.state == StateBackgroundListening:
			s.cancelTimer()
			s.stopRecognizer(RoleBackground, false)
			s.setState(StateIdle, nil)
		case !enabled && s.state == StateIdle:
			s.cancelTimer()
		}
	})
}

// Reset aborts all recognition, clears the buffer and error and returns to Idle.
// Background listening restarts when always-listening is on.
func (s *Session) Reset() {
	s.post(func() {
		s.cancelTimer()
		s.abortAll()
		s.procSeq++
		s.retries = [2]int{}
		s.clearBuffer()
		s.setError(nil)
		if s.state != StateIdle {
			s.setState(StateIdle, nil)
		}
		s.idle()
	})
}

// Close aborts all recognition and stops the session. Later input is ignored.
func (s *Session) Close() {
	s.post(func() {
		s.cancelTimer()
		s.abortAll()
		s.procSeq++
		s.qmu.Lock()
		s.closed = true
		s.queue = nil
		s.qmu.Unlock()
	})
	s.cancel()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Transcript returns the finalised segments followed by the current interim text.
func (s *Session) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcriptLocked()
}

// LastError returns the error that moved the session to demo mode, if any.
func (s *Session) LastError() *RecognitionError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// WakeWord returns the configured wake word.
func (s *Session) WakeWord() string {
	return s.detector.Phrase()
}

func (s *Session) post(fn func()) {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	s.qmu.Unlock()

	for {
		s.qmu.Lock()
		if len(s.queue) == 0 || s.closed {
			s.queue = nil
			s.draining = false
			s.qmu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		next()
	}
}

func (s *Session) handleEvent(ev Event) {
	if s.recs[ev.Role] == nil || ev.Generation != s.gens[ev.Role] {
		s.logger.Debug("dropping stale recognizer event",
			"role", ev.Role, "kind", ev.Kind, "generation", ev.Generation, "live", s.gens[ev.Role])
		return
	}

	switch ev.Kind {
	case EventStart:
		s.retries[ev.Role] = 0
	case EventResult:
		s.handleResult(ev)
	case EventError:
		s.handleError(ev.Role, ev.ErrorCode)
	case EventEnd:
		s.handleEnd(ev.Role)
	}
}

func (s *Session) handleResult(ev Event) {
	switch ev.Role {
	case RoleBackground:
		if s.state != StateBackgroundListening {
			return
		}
		if s.detector.ProcessTranscript(ev.Transcript) {
			s.logger.Info("wake word detected", "wake_word", s.detector.Phrase())
			s.activate()
		}
	case RoleActive:
		if s.state != StateActiveListening {
			return
		}
		s.mu.Lock()
		if ev.Final {
			if t := strings.TrimSpace(ev.Transcript); t != "" {
				s.final = append(s.final, t)
			}
			s.interim = ""
		} else {
			s.interim = strings.TrimSpace(ev.Transcript)
		}
		text := s.transcriptLocked()
		s.mu.Unlock()
		s.listener.OnTranscript(text, ev.Final)
	}
}

func (s *Session) handleError(role Role, code ErrorCode) {
	switch {
	case code.Benign():
		s.logger.Debug("ignoring recognizer error", "role", role, "code", code)
	case code.Retryable():
		s.retries[role]++
		if s.retries[role] > s.cfg.MaxStartRetries {
			s.logger.Warn("recognizer start retries exhausted", "role", role, "retries", s.cfg.MaxStartRetries)
			s.fail(NewRecognitionError(code))
			return
		}
		s.logger.Debug("recognizer already started, retrying", "role", role, "attempt", s.retries[role])
		s.stopRecognizer(role, true)
		want := role.listeningState()
		s.after(s.cfg.RestartDelay, func() {
			if s.state == want && s.recs[role] == nil {
				s.startRecognizer(role)
			}
		})
	default:
		s.logger.Warn("speech recognition failed", "role", role, "code", code)
		s.fail(NewRecognitionError(code))
	}
}

func (s *Session) handleEnd(role Role) {
	s.recs[role] = nil

	switch role {
	case RoleBackground:
		if s.state != StateBackgroundListening {
			return
		}
		if !s.alwaysListening {
			s.setState(StateIdle, nil)
			return
		}
		s.logger.Debug("background recognizer ended, restarting")
		s.after(s.cfg.RestartDelay, func() {
			if s.state == StateBackgroundListening && s.recs[RoleBackground] == nil {
				s.startRecognizer(RoleBackground)
			}
		})
	case RoleActive:
		if s.state == StateActiveListening {
			s.finishUtterance()
		}
	}
}

// activate moves to ActiveListening. The active recognizer is started only
// after the background one has been stopped and SwitchDelay has passed.
func (s *Session) activate() {
	s.cancelTimer()
	s.clearBuffer()

	if s.recs[RoleBackground] == nil {
		s.setState(StateActiveListening, nil)
		s.startRecognizer(RoleActive)
		return
	}

	s.stopRecognizer(RoleBackground, false)
	s.setState(StateActiveListening, nil)
	s.after(s.cfg.SwitchDelay, func() {
		if s.state == StateActiveListening && s.recs[RoleActive] == nil {
			s.startRecognizer(RoleActive)
		}
	})
}

func (s *Session) finishUtterance() {
	s.mu.RLock()
	text := strings.TrimSpace(s.transcriptLocked())
	s.mu.RUnlock()

	if text == "" {
		s.logger.Debug("utterance ended without speech")
		s.setState(StateIdle, nil)
		s.resumeBackground()
		return
	}
	s.process(text, StateIdle)
}

// process hands text to the processor off the event loop. The result is posted back.
func (s *Session) process(text string, resume State) {
	s.procSeq++
	seq := s.procSeq
	s.resumeState = resume
	s.setState(StateProcessing, nil)

	go func() {
		n, err := s.processor.Process(s.ctx, text)
		s.post(func() { s.processed(seq, n, err) })
	}()
}

func (s *Session) processed(seq uint64, n int, err error) {
	if seq != s.procSeq || s.state != StateProcessing {
		return
	}
	if err != nil {
		s.logger.Error("processing transcript failed", "error", err)
	} else {
		s.logger.Info("transcript processed", "tasks", n)
	}
	s.listener.OnProcessed(n, err)
	s.clearBuffer()

	if s.resumeState == StateDemoMode {
		s.setState(StateDemoMode, s.LastError())
		return
	}
	s.setState(StateIdle, nil)
	s.resumeBackground()
}

// idle runs the entry actions of Idle: demo mode for unsupported platforms,
// otherwise background listening when enabled.
func (s *Session) idle() {
	if !s.platform.Supported() {
		s.fail(NewRecognitionError(CodeUnsupported))
		return
	}
	if s.alwaysListening {
		s.startRecognizer(RoleBackground)
	}
}

func (s *Session) resumeBackground() {
	if !s.alwaysListening {
		return
	}
	s.after(s.cfg.CooldownDelay, func() {
		if s.state == StateIdle && s.alwaysListening {
			s.startRecognizer(RoleBackground)
		}
	})
}

// startRecognizer creates and starts a fresh recognizer for role. The other
// role's recognizer is always stopped first.
func (s *Session) startRecognizer(role Role) {
	if s.recs[role.other()] != nil {
		s.stopRecognizer(role.other(), false)
	}
	if s.recs[role] != nil {
		s.stopRecognizer(role, true)
	}

	s.gens[role]++
	if role == RoleBackground {
		s.detector.Reset()
	}
	rec, err := s.platform.NewRecognizer(RecognizerOptions{
		Role:           role,
		Continuous:     role == RoleBackground,
		InterimResults: true,
		Lang:           s.cfg.Lang,
		Generation:     s.gens[role],
	})
	if err != nil {
		s.logger.Error("failed to create recognizer", "role", role, "error", err)
		s.fail(NewRecognitionError(codeOf(err)))
		return
	}

	s.recs[role] = rec
	if s.state != role.listeningState() {
		s.setState(role.listeningState(), nil)
	}

	if err := rec.Start(); err != nil {
		s.logger.Debug("recognizer start failed", "role", role, "error", err)
		s.handleError(role, codeOf(err))
	}
}

func (s *Session) stopRecognizer(role Role, abort bool) {
	rec := s.recs[role]
	if rec == nil {
		return
	}
	s.recs[role] = nil

	var err error
	if abort {
		err = rec.Abort()
	} else {
		err = rec.Stop()
	}
	if err != nil {
		s.logger.Debug("recognizer stop failed", "role", role, "abort", abort, "error", err)
	}
}

func (s *Session) abortAll() {
	s.stopRecognizer(RoleActive, true)
	s.stopRecognizer(RoleBackground, true)
}

// fail records err, aborts everything and passes through Failed into DemoMode.
func (s *Session) fail(err *RecognitionError) {
	s.cancelTimer()
	s.abortAll()
	s.setError(err)
	s.setState(StateFailed, err)
	s.setState(StateDemoMode, err)
}

func (s *Session) setState(to State, err *RecognitionError) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from == to {
		return
	}
	s.logger.Debug("speech state change", "from", from, "to", to)
	s.listener.OnStateChange(from, to, err)
}

func (s *Session) setError(err *RecognitionError) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) clearBuffer() {
	s.mu.Lock()
	s.final = nil
	s.interim = ""
	s.mu.Unlock()
}

func (s *Session) transcriptLocked() string {
	parts := s.final
	if s.interim != "" {
		parts = append(parts[:len(parts):len(parts)], s.interim)
	}
	return strings.Join(parts, " ")
}

// after schedules fn on the event loop. Only one delayed call is pending at a
// time; scheduling another or calling cancelTimer discards it.
func (s *Session) after(d time.Duration, fn func()) {
	s.cancelTimer()
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(d, func() {
		s.post(func() {
			if seq != s.timerSeq {
				return
			}
			s.timer = nil
			fn()
		})
	})
}

func (s *Session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func codeOf(err error) ErrorCode {
	var rerr *RecognitionError
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return CodeUnknown
}
