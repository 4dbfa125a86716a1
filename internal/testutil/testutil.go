package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/hotdictate/internal/config"
	"github.com/leonardotrapani/hotdictate/internal/recording"
	"github.com/leonardotrapani/hotdictate/internal/transcriber"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	c := config.DefaultConfig()
	c.Recording.SampleRate = 16000
	c.Recording.FramesPerBuffer = 256
	c.Transcription.RetryBaseDelay = 10 * time.Millisecond
	c.Transcription.Timeout = 5 * time.Second
	c.Providers["openai"] = config.ProviderConfig{APIKey: "test-api-key"}
	c.Hotkey.Enabled = false
	c.Notifications.Type = "log"
	return c
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// SaveTempConfig writes c to a temporary config file and returns its path
func SaveTempConfig(t *testing.T, c *config.Config) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := config.Save(configPath, c); err != nil {
		t.Fatalf("Failed to save temp config: %v", err)
	}
	return configPath
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// FakeDevice implements recording.Device. It returns Frames in order and then
// silent frames until closed.
type FakeDevice struct {
	Frames  [][]byte
	OpenErr error

	opens  atomic.Int32
	closes atomic.Int32

	mu   sync.Mutex
	next int
}

func (d *FakeDevice) Open(cfg recording.Config) error {
	d.opens.Add(1)
	d.mu.Lock()
	d.next = 0
	d.mu.Unlock()
	return d.OpenErr
}

func (d *FakeDevice) Read() ([]byte, error) {
	d.mu.Lock()
	if d.next < len(d.Frames) {
		frame := append([]byte(nil), d.Frames[d.next]...)
		d.next++
		d.mu.Unlock()
		return frame, nil
	}
	d.mu.Unlock()

	time.Sleep(time.Millisecond)
	return make([]byte, 4), nil
}

func (d *FakeDevice) Close() error {
	d.closes.Add(1)
	return nil
}

func (d *FakeDevice) Opens() int  { return int(d.opens.Load()) }
func (d *FakeDevice) Closes() int { return int(d.closes.Load()) }

// Factory returns a recorder device factory that always hands out d
func (d *FakeDevice) Factory() func() recording.Device {
	return func() recording.Device { return d }
}

// MockTranscriber implements transcriber.Transcriber for testing
type MockTranscriber struct {
	Text    string
	Failure *transcriber.Failure

	calls atomic.Int32
}

func NewMockTranscriber(text string) *MockTranscriber {
	return &MockTranscriber{Text: text}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, wav []byte) transcriber.Result {
	m.calls.Add(1)
	if m.Failure != nil {
		return transcriber.Failed(m.Failure)
	}
	return transcriber.Succeeded(m.Text, 1)
}

func (m *MockTranscriber) Calls() int {
	return int(m.calls.Load())
}

// MockInjector implements injection.Injector for testing
type MockInjector struct {
	InjectError error

	mu            sync.Mutex
	InjectedTexts []string
}

func NewMockInjector() *MockInjector {
	return &MockInjector{}
}

func (m *MockInjector) Inject(ctx context.Context, text string) error {
	if m.InjectError != nil {
		return m.InjectError
	}
	m.mu.Lock()
	m.InjectedTexts = append(m.InjectedTexts, text)
	m.mu.Unlock()
	return nil
}

func (m *MockInjector) GetInjectedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.InjectedTexts))
	copy(result, m.InjectedTexts)
	return result
}

// RecordingNotifier implements notify.Notifier and keeps every message
type RecordingNotifier struct {
	mu       sync.Mutex
	recState []bool
	errors   []string
	warnings []string
}

func (n *RecordingNotifier) RecordingChanged(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recState = append(n.recState, on)
}

func (n *RecordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *RecordingNotifier) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, msg)
}

func (n *RecordingNotifier) RecordingChanges() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]bool(nil), n.recState...)
}

func (n *RecordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

func (n *RecordingNotifier) Warnings() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.warnings...)
}
