package recording

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDevice replays scripted reads. After the script runs out it keeps returning
// silent frames, pausing briefly like a real device would.
type fakeDevice struct {
	mu      sync.Mutex
	openErr error
	reads   []fakeRead
	next    int

	opens  atomic.Int32
	closes atomic.Int32
}

type fakeRead struct {
	data  []byte
	err   error
	panic bool
}

func (d *fakeDevice) Open(config Config) error {
	d.opens.Add(1)
	return d.openErr
}

func (d *fakeDevice) Read() ([]byte, error) {
	d.mu.Lock()
	if d.next < len(d.reads) {
		r := d.reads[d.next]
		d.next++
		d.mu.Unlock()
		if r.panic {
			panic("device exploded")
		}
		return r.data, r.err
	}
	d.mu.Unlock()
	time.Sleep(time.Millisecond)
	return make([]byte, 4), nil
}

func (d *fakeDevice) Close() error {
	d.closes.Add(1)
	return nil
}

type sliceSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *sliceSink) Append(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *sliceSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func startRecorder(t *testing.T, config Config, dev Device) *Recorder {
	t.Helper()
	r := NewRecorder(config, func() Device { return dev })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	t.Run("default values", func(t *testing.T) {
		if config.SampleRate != 44100 {
			t.Errorf("default sample rate should be 44100, got %d", config.SampleRate)
		}
		if config.Channels != 1 {
			t.Errorf("default channels should be 1, got %d", config.Channels)
		}
		if config.FramesPerBuffer != 1024 {
			t.Errorf("default frames per buffer should be 1024, got %d", config.FramesPerBuffer)
		}
		if config.Device != "" {
			t.Errorf("default device should be empty, got %s", config.Device)
		}
		if config.MaxDroppedFrames != 0 {
			t.Errorf("default max dropped frames should be 0, got %d", config.MaxDroppedFrames)
		}
	})
}

func TestRecorderValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "valid default config", config: DefaultConfig()},
		{name: "invalid sample rate", config: Config{SampleRate: 0, Channels: 1, FramesPerBuffer: 1024}, expectError: true},
		{name: "invalid channels", config: Config{SampleRate: 44100, Channels: 0, FramesPerBuffer: 1024}, expectError: true},
		{name: "invalid frames per buffer", config: Config{SampleRate: 44100, Channels: 1, FramesPerBuffer: 0}, expectError: true},
		{name: "negative drop limit", config: Config{SampleRate: 44100, Channels: 1, FramesPerBuffer: 1024, MaxDroppedFrames: -1}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecorder(tt.config, func() Device { return &fakeDevice{} })
			err := r.validateConfig()
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCaptureSessionClose(t *testing.T) {
	t.Run("close twice releases once", func(t *testing.T) {
		dev := &fakeDevice{}
		s, err := OpenSession(dev, DefaultConfig())
		if err != nil {
			t.Fatalf("OpenSession failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("first Close failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("second Close failed: %v", err)
		}
		if got := dev.closes.Load(); got != 1 {
			t.Errorf("device should be closed exactly once, got %d", got)
		}
	})

	t.Run("failed open releases device", func(t *testing.T) {
		dev := &fakeDevice{openErr: errors.New("no such device")}
		s, err := OpenSession(dev, DefaultConfig())
		if s != nil {
			t.Error("OpenSession should not return a session on failure")
		}
		if !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("expected ErrDeviceUnavailable, got %v", err)
		}
		if got := dev.closes.Load(); got != 1 {
			t.Errorf("device should be released after partial open, got %d closes", got)
		}
	})
}

func TestRecorderCapturesInOrder(t *testing.T) {
	dev := &fakeDevice{reads: []fakeRead{
		{data: []byte{1, 0}},
		{err: ErrStreamOverflow},
		{data: []byte{2, 0}},
		{data: []byte{3, 0}},
	}}
	r := startRecorder(t, DefaultConfig(), dev)
	sink := &sliceSink{}

	if err := r.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.IsRecording() {
		t.Error("recorder should report recording after Start")
	}

	waitFor(t, func() bool { return sink.count() >= 3 })

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.IsRecording() {
		t.Error("recorder should not be recording after Stop")
	}

	for i, want := range []byte{1, 2, 3} {
		if sink.frames[i][0] != want {
			t.Errorf("frame %d = %v, want first byte %d", i, sink.frames[i], want)
		}
	}
	if got := dev.closes.Load(); got != 1 {
		t.Errorf("device should be closed once after Stop, got %d", got)
	}
}

func TestRecorderNoAppendAfterStop(t *testing.T) {
	dev := &fakeDevice{}
	r := startRecorder(t, DefaultConfig(), dev)
	sink := &sliceSink{}

	if err := r.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	before := sink.count()
	time.Sleep(20 * time.Millisecond)
	if after := sink.count(); after != before {
		t.Errorf("frames appended after Stop returned: %d -> %d", before, after)
	}
}

func TestRecorderRequestStopFreezesSink(t *testing.T) {
	dev := &fakeDevice{}
	r := startRecorder(t, DefaultConfig(), dev)
	sink := &sliceSink{}

	if err := r.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return sink.count() >= 5 })

	r.RequestStop()
	before := sink.count()
	time.Sleep(20 * time.Millisecond)
	if after := sink.count(); after != before {
		t.Errorf("frames appended after RequestStop returned: %d -> %d", before, after)
	}

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := dev.closes.Load(); got != 1 {
		t.Errorf("device should be closed once, got %d", got)
	}
	if after := sink.count(); after != before {
		t.Errorf("frames appended while waiting for the loop: %d -> %d", before, after)
	}
}

func TestRecorderDeviceUnavailable(t *testing.T) {
	dev := &fakeDevice{openErr: ErrDeviceUnavailable}
	r := startRecorder(t, DefaultConfig(), dev)

	err := r.Start(context.Background(), &sliceSink{})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if r.IsRecording() {
		t.Error("recorder should not be recording after failed Start")
	}

	// the next attempt gets a fresh chance
	dev.openErr = nil
	if err := r.Start(context.Background(), &sliceSink{}); err != nil {
		t.Fatalf("second Start should succeed: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestRecorderDropLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxDroppedFrames = 2
	dev := &fakeDevice{reads: []fakeRead{
		{data: []byte{1, 0}},
		{err: ErrStreamOverflow},
		{err: ErrStreamOverflow},
		{err: ErrStreamOverflow},
	}}
	r := startRecorder(t, config, dev)
	sink := &sliceSink{}

	if err := r.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return !r.IsRecording() })

	err := r.Stop(context.Background())
	if !errors.Is(err, ErrTooManyDropped) {
		t.Errorf("expected ErrTooManyDropped, got %v", err)
	}
	if sink.count() != 1 {
		t.Errorf("frames read before the limit should be kept, got %d", sink.count())
	}
}

func TestRecorderRecoversPanic(t *testing.T) {
	dev := &fakeDevice{reads: []fakeRead{
		{data: []byte{1, 0}},
		{panic: true},
	}}
	r := startRecorder(t, DefaultConfig(), dev)

	if err := r.Start(context.Background(), &sliceSink{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return !r.IsRecording() })

	if err := r.Stop(context.Background()); err == nil {
		t.Error("Stop should report the panic as an error")
	}
	if got := dev.closes.Load(); got != 1 {
		t.Errorf("device should be released after panic, got %d closes", got)
	}
}

func TestRecorderStartWithoutRun(t *testing.T) {
	r := NewRecorder(DefaultConfig(), func() Device { return &fakeDevice{} })
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Start(ctx, &sliceSink{}); err == nil {
		t.Error("Start should fail when the capture goroutine is not running")
	}
}

func TestRecorderStopIdle(t *testing.T) {
	r := NewRecorder(DefaultConfig(), func() Device { return &fakeDevice{} })
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle recorder should be a no-op, got %v", err)
	}
}
