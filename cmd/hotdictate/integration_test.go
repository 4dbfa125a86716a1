//go:build integration

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/leonardotrapani/hotdictate/internal/audio"
	"github.com/leonardotrapani/hotdictate/internal/config"
	"github.com/leonardotrapani/hotdictate/internal/transcriber"
)

const (
	testSampleRate = 44100
	testTimeout    = 45 * time.Second
)

// TestTranscriptionProviders uploads a short tone to every provider that has a
// key configured. Silence-like audio may transcribe to anything, so only the
// outcome is checked.
func TestTranscriptionProviders(t *testing.T) {
	wav := synthesizeTone(t, 440, time.Second)

	providers := []struct {
		name  string
		model string
	}{
		{"openai", "whisper-1"},
		{"openai-sdk", "whisper-1"},
		{"groq", "whisper-large-v3-turbo"},
	}

	for _, p := range providers {
		t.Run(fmt.Sprintf("%s/%s", p.name, p.model), func(t *testing.T) {
			cfg := loadTestConfig(t)
			cfg.Transcription.Provider = p.name
			cfg.Transcription.Model = p.model
			cfg.Transcription.Timeout = testTimeout

			if cfg.ResolveAPIKey() == "" {
				t.Skipf("no API key for %s", p.name)
			}

			client, err := transcriber.NewTranscriber(cfg.ToTranscriberConfig())
			if err != nil {
				t.Fatalf("NewTranscriber: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			start := time.Now()
			result := client.Transcribe(ctx, wav)
			if !result.OK() {
				t.Fatalf("transcription failed after %d attempt(s): %v", result.Attempts, result.Err())
			}
			t.Logf("%s: %q in %v", p.name, result.Text, time.Since(start).Round(time.Millisecond))
		})
	}
}

func synthesizeTone(t *testing.T, freq float64, d time.Duration) []byte {
	t.Helper()

	buf := audio.NewBuffer(audio.DefaultFormat())
	samples := int(float64(testSampleRate) * d.Seconds())
	const frameSamples = 1024

	for off := 0; off < samples; off += frameSamples {
		n := min(frameSamples, samples-off)
		frame := make([]byte, n*2)
		for i := 0; i < n; i++ {
			v := 0.3 * math.Sin(2*math.Pi*freq*float64(off+i)/testSampleRate)
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(int16(v*math.MaxInt16)))
		}
		if err := buf.Append(frame); err != nil {
			t.Fatal(err)
		}
	}

	wav, err := buf.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return wav
}

func loadTestConfig(t *testing.T) *config.Config {
	path := os.Getenv("HOTDICTATE_TEST_CONFIG")
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Logf("warning: could not load config: %v", err)
		return config.DefaultConfig()
	}
	return cfg
}
