package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrTooManyDropped   = errors.New("too many overflowed audio frames")
)

type Config struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	Device          string
	// MaxDroppedFrames ends capture once more overflowed frames than this were
	// dropped in one recording. Zero means no limit.
	MaxDroppedFrames int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:       44100,
		Channels:         1,
		FramesPerBuffer:  1024,
		Device:           "",
		MaxDroppedFrames: 0,
	}
}

// FrameSink receives captured PCM in read order.
type FrameSink interface {
	Append(frame []byte) error
}

type startRequest struct {
	sink  FrameSink
	reply chan error
}

// Recorder owns the capture goroutine. Run must be running for Start to succeed;
// each Start opens a fresh Device from the factory and each Stop releases it.
type Recorder struct {
	config    Config
	newDevice func() Device
	starts    chan startRequest

	recording atomic.Bool

	mu      sync.Mutex // guards stopped and done; held while appending a frame
	stopped bool
	done    chan error
}

func NewRecorder(config Config, newDevice func() Device) *Recorder {
	return &Recorder{
		config:    config,
		newDevice: newDevice,
		starts:    make(chan startRequest),
	}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Run serves start requests until ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	if err := r.validateConfig(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-r.starts:
			r.capture(ctx, req)
		}
	}
}

// Start opens the device and begins appending frames to sink. It returns once
// the device is open or failed to open.
func (r *Recorder) Start(ctx context.Context, sink FrameSink) error {
	if r.recording.Load() {
		return ErrAlreadyRecording
	}

	req := startRequest{sink: sink, reply: make(chan error, 1)}
	select {
	case r.starts <- req:
	case <-ctx.Done():
		return fmt.Errorf("recorder not running: %w", ctx.Err())
	}
	return <-req.reply
}

// RequestStop tells the capture loop to exit without waiting for it. No frame
// reaches the sink once RequestStop has returned.
func (r *Recorder) RequestStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

// Stop requests a stop and waits for the capture loop to exit. The returned
// error is whatever ended the capture loop.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	done := r.done
	r.done = nil
	r.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("wait for capture loop: %w", ctx.Err())
	}
}

func (r *Recorder) capture(ctx context.Context, req startRequest) {
	session, err := OpenSession(r.newDevice(), r.config)
	if err != nil {
		zap.S().Warnf("recording: open device: %v", err)
		req.reply <- err
		return
	}

	done := make(chan error, 1)
	r.mu.Lock()
	r.stopped = false
	r.done = done
	r.mu.Unlock()

	r.recording.Store(true)
	req.reply <- nil

	err = r.captureLoop(ctx, session, req.sink)
	r.recording.Store(false)
	done <- err
}

func (r *Recorder) captureLoop(ctx context.Context, session *CaptureSession, sink FrameSink) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("capture loop panic: %v", p)
			zap.S().Errorf("recording: %v", err)
		}
		if cerr := session.Close(); cerr != nil {
			zap.S().Warnf("recording: close device: %v", cerr)
		}
	}()

	var sentCount, droppedCount, droppedSinceLog int
	lastDropLog := time.Now()

	for {
		if r.stopRequested() || ctx.Err() != nil {
			break
		}

		frame, readErr := session.ReadFrame()
		if errors.Is(readErr, ErrStreamOverflow) {
			droppedCount++
			droppedSinceLog++
			if time.Since(lastDropLog) > time.Second {
				zap.S().Warnf("recording: dropped %d frames due to input overflow", droppedSinceLog)
				lastDropLog = time.Now()
				droppedSinceLog = 0
			}
			if r.config.MaxDroppedFrames > 0 && droppedCount > r.config.MaxDroppedFrames {
				return fmt.Errorf("%w: %d", ErrTooManyDropped, droppedCount)
			}
			continue
		}
		if readErr != nil {
			return fmt.Errorf("read audio: %w", readErr)
		}

		if !r.appendFrame(sink, frame) {
			break
		}
		sentCount++
	}

	zap.S().Debugf("recording: capture loop finished, %d frames kept, %d dropped", sentCount, droppedCount)
	return nil
}

// appendFrame hands frame to sink unless a stop was requested while it was being read.
func (r *Recorder) appendFrame(sink FrameSink, frame AudioFrame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	if err := sink.Append(frame.Data); err != nil {
		zap.S().Warnf("recording: append frame: %v", err)
		return false
	}
	return true
}

func (r *Recorder) stopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid FramesPerBuffer: %d", r.config.FramesPerBuffer)
	}
	if r.config.MaxDroppedFrames < 0 {
		return fmt.Errorf("invalid MaxDroppedFrames: %d", r.config.MaxDroppedFrames)
	}
	if r.newDevice == nil {
		return errors.New("no audio device factory")
	}
	return nil
}
