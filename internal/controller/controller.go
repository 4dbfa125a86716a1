package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leonardotrapani/hotdictate/internal/audio"
	"github.com/leonardotrapani/hotdictate/internal/injection"
	"github.com/leonardotrapani/hotdictate/internal/notify"
	"github.com/leonardotrapani/hotdictate/internal/recording"
	"github.com/leonardotrapani/hotdictate/internal/transcriber"
)

type State string

const (
	Idle         State = "idle"
	Recording    State = "recording"
	Stopping     State = "stopping"
	Transcribing State = "transcribing"
	Injecting    State = "injecting"
	Failed       State = "failed"
)

// Recorder is the capture worker as seen by the controller.
type Recorder interface {
	Start(ctx context.Context, sink recording.FrameSink) error
	// RequestStop must not block. No frame reaches the sink after it returns.
	RequestStop()
	// Stop waits for the capture loop to exit.
	Stop(ctx context.Context) error
}

type Config struct {
	Format       audio.Format
	OutputFile   string        // transient WAV copy for the current cycle; empty disables it
	MaxRecording time.Duration // auto-stop after this long; zero disables it
	StartTimeout time.Duration
	StopTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Format:       audio.DefaultFormat(),
		MaxRecording: 5 * time.Minute,
		StartTimeout: 5 * time.Second,
		StopTimeout:  5 * time.Second,
	}
}

// Session is one recording from Idle to the end of its cycle.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	StoppedAt time.Time

	buffer *audio.Buffer
}

// Snapshot is the externally visible controller status.
type Snapshot struct {
	State     State
	SessionID string
	Since     time.Time
}

// Controller owns the toggle state machine. Toggle runs on the caller's
// goroutine and only moves Idle->Recording->Stopping; Run performs the rest of
// the cycle on its own goroutine.
type Controller struct {
	config   Config
	recorder Recorder

	// toggleMu serializes the Idle->Recording->Stopping moves. It is held across
	// the recorder calls so that mu stays free for Snapshot and Update.
	toggleMu sync.Mutex
	timer    *time.Timer

	mu          sync.Mutex
	state       State
	since       time.Time
	session     *Session
	transcriber transcriber.Transcriber
	injector    injection.Injector
	notifier    notify.Notifier
	observers   []func(State)

	jobs chan *Session
}

func New(config Config, recorder Recorder, t transcriber.Transcriber, i injection.Injector, n notify.Notifier) *Controller {
	if n == nil {
		n = notify.Nop{}
	}
	if config.Format == (audio.Format{}) {
		config.Format = audio.DefaultFormat()
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = 5 * time.Second
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 5 * time.Second
	}
	return &Controller{
		config:      config,
		recorder:    recorder,
		state:       Idle,
		since:       time.Now(),
		transcriber: t,
		injector:    i,
		notifier:    n,
		jobs:        make(chan *Session, 1),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state, Since: c.since}
	if c.session != nil {
		s.SessionID = c.session.ID.String()
	}
	return s
}

// Observe registers fn for every state change. fn runs with the controller
// locked and must not call back into it.
func (c *Controller) Observe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Update swaps collaborators. A cycle already past Recording keeps the ones it
// started with. Nil arguments leave the current value in place.
func (c *Controller) Update(t transcriber.Transcriber, i injection.Injector, n notify.Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t != nil {
		c.transcriber = t
	}
	if i != nil {
		c.injector = i
	}
	if n != nil {
		c.notifier = n
	}
}

// Toggle starts a recording when idle and stops it when recording. In any
// other state the toggle is dropped. It reports whether the toggle was acted on.
func (c *Controller) Toggle() bool {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	// Only Toggle and the recording timer leave Idle or Recording, both under toggleMu.
	switch state := c.State(); state {
	case Idle:
		c.start()
		return true
	case Recording:
		c.stop("toggle")
		return true
	default:
		zap.S().Infof("controller: toggle ignored while %s", state)
		return false
	}
}

func (c *Controller) start() {
	s := &Session{
		ID:     uuid.New(),
		buffer: audio.NewBuffer(c.config.Format),
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.StartTimeout)
	err := c.recorder.Start(ctx, s.buffer)
	cancel()

	n := c.notifierSnapshot()
	if err != nil {
		zap.S().Errorf("controller: start recording: %v", err)
		c.setState(Failed)
		n.Error(userMessage(err))
		c.setState(Idle)
		return
	}

	s.StartedAt = time.Now()
	c.mu.Lock()
	c.session = s
	c.setStateLocked(Recording)
	c.mu.Unlock()
	n.RecordingChanged(true)
	zap.S().Infof("controller: session %s recording", s.ID)

	if c.config.MaxRecording > 0 {
		c.timer = time.AfterFunc(c.config.MaxRecording, func() { c.timeout(s.ID) })
	}
}

func (c *Controller) timeout(id uuid.UUID) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	c.mu.Lock()
	current := c.state == Recording && c.session != nil && c.session.ID == id
	c.mu.Unlock()
	if current {
		c.stop("recording timeout")
	}
}

// stop freezes the session buffer before anyone can observe Stopping and hands
// the session to Run.
func (c *Controller) stop(reason string) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.recorder.RequestStop()

	c.mu.Lock()
	s := c.session
	c.setStateLocked(Stopping)
	n := c.notifier
	c.mu.Unlock()

	n.RecordingChanged(false)
	zap.S().Infof("controller: session %s stopping (%s)", s.ID, reason)

	// jobs holds at most one session and only one session exists at a time
	c.jobs <- s
}

// Run processes stopped sessions until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case s := <-c.jobs:
			c.process(ctx, s)
		}
	}
}

func (c *Controller) process(ctx context.Context, s *Session) {
	// the stop was requested in stop; wait for the capture loop to let go of the device
	stopCtx, cancel := context.WithTimeout(ctx, c.config.StopTimeout)
	err := c.recorder.Stop(stopCtx)
	cancel()
	if err != nil {
		zap.S().Warnf("controller: capture for session %s ended with error: %v", s.ID, err)
	}
	s.StoppedAt = time.Now()

	wav, err := s.buffer.Finalize()
	if errors.Is(err, audio.ErrEmptyRecording) {
		zap.S().Warnf("controller: session %s captured no audio, skipping transcription", s.ID)
		c.notifierSnapshot().Warn("No audio captured")
		c.finish(Idle)
		return
	}
	if err != nil {
		c.fail(s, fmt.Errorf("encode recording: %w", err))
		return
	}

	zap.S().Infof("controller: session %s recorded %v, %d bytes of WAV", s.ID, s.StoppedAt.Sub(s.StartedAt).Round(time.Millisecond), len(wav))

	t, inj, n := c.collaborators()
	c.setState(Transcribing)

	if path := c.persist(wav); path != "" {
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				zap.S().Warnf("controller: remove %s: %v", path, err)
			}
		}()
	}

	result := t.Transcribe(ctx, wav)
	if !result.OK() {
		c.fail(s, result.Err())
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		zap.S().Warnf("controller: session %s transcribed to empty text", s.ID)
		n.Warn("No speech recognized")
		c.finish(Idle)
		return
	}

	c.setState(Injecting)
	if err := inj.Inject(ctx, text); err != nil {
		zap.S().Warnf("controller: inject: %v", err)
		var injErr *injection.InjectionError
		if errors.As(err, &injErr) && injErr.Copied {
			n.Warn("Could not type text, copied to clipboard")
		} else {
			n.Error("Could not insert text: " + err.Error())
		}
	} else {
		zap.S().Infof("controller: session %s injected %d chars", s.ID, len(text))
	}
	c.finish(Idle)
}

func (c *Controller) fail(s *Session, err error) {
	zap.S().Errorf("controller: session %s failed: %v", s.ID, err)
	c.setState(Failed)
	c.notifierSnapshot().Error(userMessage(err))
	c.finish(Idle)
}

func (c *Controller) finish(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.setStateLocked(state)
}

// shutdown abandons an in-progress recording.
func (c *Controller) shutdown() {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()
	if c.State() != Recording {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.StopTimeout)
	defer cancel()
	if err := c.recorder.Stop(ctx); err != nil {
		zap.S().Warnf("controller: stop recording on shutdown: %v", err)
	}

	c.mu.Lock()
	n := c.notifier
	c.session = nil
	c.setStateLocked(Idle)
	c.mu.Unlock()
	n.RecordingChanged(false)
}

func (c *Controller) persist(wav []byte) string {
	path := c.config.OutputFile
	if path == "" {
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		zap.S().Warnf("controller: create output dir: %v", err)
		return ""
	}
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		zap.S().Warnf("controller: write %s: %v", path, err)
		return ""
	}
	return path
}

func (c *Controller) collaborators() (transcriber.Transcriber, injection.Injector, notify.Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcriber, c.injector, c.notifier
}

func (c *Controller) notifierSnapshot() notify.Notifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifier
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(state)
}

func (c *Controller) setStateLocked(state State) {
	if c.state == state {
		return
	}
	zap.S().Debugf("controller: %s -> %s", c.state, state)
	c.state = state
	c.since = time.Now()
	for _, fn := range c.observers {
		fn(state)
	}
}

// userMessage is the short form of err shown in notifications.
func userMessage(err error) string {
	var failure *transcriber.Failure
	switch {
	case errors.Is(err, recording.ErrDeviceUnavailable):
		return "Microphone unavailable"
	case errors.Is(err, recording.ErrAlreadyRecording):
		return "Microphone busy"
	case errors.As(err, &failure) && failure.Kind == transcriber.FailureTimeout:
		return "Transcription timed out"
	case errors.As(err, &failure) && failure.Kind == transcriber.FailureAPI:
		return fmt.Sprintf("Transcription failed (HTTP %d)", failure.Status)
	case err != nil:
		return "Transcription failed: " + err.Error()
	}
	return "Transcription failed"
}
