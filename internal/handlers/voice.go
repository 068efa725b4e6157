package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/metrics"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/service"
	"github.com/nwoyto/PersonalAiHelper-sub000/internal/speech"
)

const (
	voiceWriteWait      = 10 * time.Second
	voicePongWait       = 60 * time.Second
	voicePingPeriod     = (voicePongWait * 9) / 10
	voiceMaxMessageSize = 64 * 1024
	voiceSendBuffer     = 64
)

var (
	errVoiceClosed     = errors.New("voice connection closed")
	errVoiceBufferFull = errors.New("voice send buffer full")
)

// Wire message types.
const (
	msgRecognizer   = "recognizer"
	msgListen       = "listen"
	msgConfirm      = "confirm"
	msgText         = "text"
	msgRetry        = "retry"
	msgReset        = "reset"
	msgSettings     = "settings"
	msgCapabilities = "capabilities"

	msgCommand    = "command"
	msgState      = "state"
	msgTranscript = "transcript"
	msgProcessed  = "processed"
)

// VoiceHandler bridges a browser speech engine to a speech.Session over a websocket.
// The browser owns the recognizers; the session decides when they start and stop.
type VoiceHandler struct {
	transcriber service.TranscriptionService
	cfg         speech.Config
	metrics     *metrics.Metrics
	sessionOpts []speech.Option
	upgrader    websocket.Upgrader
	pongWait    time.Duration
	pingPeriod  time.Duration
}

// VoiceOption configures a VoiceHandler.
type VoiceOption func(*VoiceHandler)

// WithVoiceMetrics sets the metrics sink for open sessions.
func WithVoiceMetrics(m *metrics.Metrics) VoiceOption {
	return func(h *VoiceHandler) { h.metrics = m }
}

// WithSessionOptions adds options applied to every session created by the handler.
func WithSessionOptions(opts ...speech.Option) VoiceOption {
	return func(h *VoiceHandler) { h.sessionOpts = append(h.sessionOpts, opts...) }
}

// WithKeepalive overrides the pong wait. Pings are sent at 90% of it.
func WithKeepalive(pongWait time.Duration) VoiceOption {
	return func(h *VoiceHandler) {
		h.pongWait = pongWait
		h.pingPeriod = (pongWait * 9) / 10
	}
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(transcriber service.TranscriptionService, cfg speech.Config, opts ...VoiceOption) *VoiceHandler {
	h := &VoiceHandler{
		transcriber: transcriber,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API already answers any origin through CORS.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pongWait:   voicePongWait,
		pingPeriod: voicePingPeriod,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type clientMessage struct {
	Type string `json:"type"`

	// recognizer
	Role       string `json:"role,omitempty"`
	Gen        uint64 `json:"gen,omitempty"`
	Event      string `json:"event,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Final      bool   `json:"final,omitempty"`
	Error      string `json:"error,omitempty"`

	// text
	Text string `json:"text,omitempty"`

	// settings
	WakeWord        *string `json:"wakeWord,omitempty"`
	AlwaysListening *bool   `json:"alwaysListening,omitempty"`

	// capabilities
	Supported *bool `json:"supported,omitempty"`
}

// event normalises a recognizer message.
func (m clientMessage) event() (speech.Event, error) {
	role, ok := speech.ParseRole(m.Role)
	if !ok {
		return speech.Event{}, fmt.Errorf("%w: unknown role %q", speech.ErrInvalidEvent, m.Role)
	}
	kind, ok := speech.ParseEventKind(m.Event)
	if !ok {
		return speech.Event{}, fmt.Errorf("%w: unknown event %q", speech.ErrInvalidEvent, m.Event)
	}

	ev := speech.Event{
		Role:       role,
		Generation: m.Gen,
		Kind:       kind,
		Transcript: m.Transcript,
		Final:      m.Final,
	}
	if kind == speech.EventError {
		ev.ErrorCode = speech.ParseErrorCode(m.Error)
	}
	if err := ev.Validate(); err != nil {
		return speech.Event{}, err
	}
	return ev, nil
}

type commandMessage struct {
	Type           string `json:"type"`
	Role           string `json:"role"`
	Gen            uint64 `json:"gen"`
	Action         string `json:"action"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interimResults"`
	Lang           string `json:"lang"`
}

type stateMessage struct {
	Type     string                   `json:"type"`
	State    speech.State             `json:"state"`
	WakeWord string                   `json:"wakeWord,omitempty"`
	Error    *speech.RecognitionError `json:"error,omitempty"`
}

type transcriptMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type processedMessage struct {
	Type  string `json:"type"`
	Tasks int    `json:"tasks"`
	Error string `json:"error,omitempty"`
}

// ServeHTTP upgrades the request and runs one speech session until the client goes away.
func (h *VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	logger := contextutil.LoggerFromContext(ctx)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	h.metrics.VoiceSessionOpened()
	defer h.metrics.VoiceSessionClosed()

	conn := newVoiceConn(ws, logger)
	go conn.writePump(h.pingPeriod)

	processor := service.Processor(h.transcriber, uid)
	process := speech.ProcessorFunc(func(pctx context.Context, text string) (int, error) {
		pctx = contextutil.WithUserID(contextutil.WithLogger(pctx, logger), uid)
		return processor.Process(pctx, text)
	})

	opts := append([]speech.Option{
		speech.WithListener(voiceListener{conn: conn}),
		speech.WithLogger(logger),
	}, h.sessionOpts...)
	session := speech.New(h.cfg, remotePlatform{conn: conn}, process, opts...)
	defer session.Close()

	logger.InfoContext(ctx, "voice session opened")
	started := false
	conn.readPump(h.pongWait, func(msg clientMessage) {
		if !started {
			started = true
			if msg.Type == msgCapabilities && msg.Supported != nil {
				conn.supported.Store(*msg.Supported)
			}
			session.Start()
			conn.sendState(session)
			if msg.Type == msgCapabilities {
				return
			}
		}
		h.handle(session, conn, msg)
	})
	logger.InfoContext(ctx, "voice session closed", "state", session.State())
}

func (h *VoiceHandler) handle(session *speech.Session, conn *voiceConn, msg clientMessage) {
	switch msg.Type {
	case msgRecognizer:
		ev, err := msg.event()
		if err != nil {
			conn.logger.Warn("dropping invalid recognizer message", "error", err)
			return
		}
		session.Dispatch(ev)
	case msgListen:
		session.StartListening()
	case msgConfirm:
		session.StopListening()
	case msgText:
		session.SubmitText(msg.Text)
	case msgRetry:
		session.RetryMicrophone()
	case msgReset:
		session.Reset()
	case msgSettings:
		if msg.WakeWord != nil {
			session.SetWakeWord(*msg.WakeWord)
		}
		if msg.AlwaysListening != nil {
			session.SetAlwaysListening(*msg.AlwaysListening)
		}
		conn.sendState(session)
	case msgCapabilities:
		conn.logger.Debug("ignoring capabilities after session start")
	default:
		conn.logger.Warn("unknown voice message type", "type", msg.Type)
	}
}

// voiceConn owns the websocket. Only writePump writes to it.
type voiceConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
	supported atomic.Bool
}

func newVoiceConn(ws *websocket.Conn, logger *slog.Logger) *voiceConn {
	c := &voiceConn{
		ws:     ws,
		send:   make(chan []byte, voiceSendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	c.supported.Store(true)
	return c
}

func (c *voiceConn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// write queues v for the writer goroutine without blocking.
func (c *voiceConn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode voice message: %w", err)
	}

	select {
	case <-c.done:
		return errVoiceClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("voice send buffer full, dropping message")
		return errVoiceBufferFull
	}
}

func (c *voiceConn) sendState(session *speech.Session) {
	_ = c.write(stateMessage{
		Type:     msgState,
		State:    session.State(),
		WakeWord: session.WakeWord(),
		Error:    session.LastError(),
	})
}

func (c *voiceConn) readPump(pongWait time.Duration, handle func(clientMessage)) {
	defer c.close()

	c.ws.SetReadLimit(voiceMaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("voice connection closed unexpectedly", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid voice message", "error", err)
			continue
		}
		handle(msg)
	}
}

func (c *voiceConn) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(voiceWriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("voice write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(voiceWriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(voiceWriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// remotePlatform creates recognizers that live in the browser.
type remotePlatform struct {
	conn *voiceConn
}

func (p remotePlatform) Supported() bool {
	return p.conn.supported.Load()
}

func (p remotePlatform) NewRecognizer(opts speech.RecognizerOptions) (speech.Recognizer, error) {
	return &remoteRecognizer{conn: p.conn, opts: opts}, nil
}

type remoteRecognizer struct {
	conn *voiceConn
	opts speech.RecognizerOptions
}

func (r *remoteRecognizer) Start() error { return r.command("start") }
func (r *remoteRecognizer) Stop() error  { return r.command("stop") }
func (r *remoteRecognizer) Abort() error { return r.command("abort") }

func (r *remoteRecognizer) command(action string) error {
	return r.conn.write(commandMessage{
		Type:           msgCommand,
		Role:           r.opts.Role.String(),
		Gen:            r.opts.Generation,
		Action:         action,
		Continuous:     r.opts.Continuous,
		InterimResults: r.opts.InterimResults,
		Lang:           r.opts.Lang,
	})
}

type voiceListener struct {
	conn *voiceConn
}

func (l voiceListener) OnStateChange(_, to speech.State, err *speech.RecognitionError) {
	_ = l.conn.write(stateMessage{Type: msgState, State: to, Error: err})
}

func (l voiceListener) OnTranscript(text string, final bool) {
	_ = l.conn.write(transcriptMessage{Type: msgTranscript, Text: text, Final: final})
}

func (l voiceListener) OnProcessed(tasks int, err error) {
	msg := processedMessage{Type: msgProcessed, Tasks: tasks}
	if err != nil {
		msg.Error = processingErrorMessage(err)
	}
	_ = l.conn.write(msg)
}

// processingErrorMessage keeps internal error detail off the wire.
func processingErrorMessage(err error) string {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, service.ErrExternalService):
		return "Task extraction is unavailable. Please try again."
	default:
		return "Failed to process transcription"
	}
}
