package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leonardotrapani/hotdictate/internal/language"
)

// ErrMissingAPIKey means no token was found for the configured provider.
var ErrMissingAPIKey = errors.New("transcription API key required")

var (
	validProviders     = map[string]bool{"openai": true, "groq": true, "custom": true, "openai-sdk": true}
	validModes         = map[string]bool{"type": true, "paste": true, "clipboard": true}
	validBackends      = map[string]bool{"ydotool": true, "wtype": true}
	validNotifications = map[string]bool{"desktop": true, "log": true, "none": true}
	validLevels        = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

func (c *Config) Validate() error {
	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid recording.frames_per_buffer: %d", c.Recording.FramesPerBuffer)
	}
	if c.Recording.MaxDroppedFrames < 0 {
		return fmt.Errorf("invalid recording.max_dropped_frames: %d (use 0 for unlimited)", c.Recording.MaxDroppedFrames)
	}
	if c.Recording.Timeout < 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}

	if !validProviders[c.Transcription.Provider] {
		return fmt.Errorf("invalid transcription.provider: %q (must be openai, groq, custom, or openai-sdk)", c.Transcription.Provider)
	}
	if c.Transcription.Provider == "custom" && c.Providers["custom"].Endpoint == "" {
		return fmt.Errorf("invalid providers.custom.endpoint: required for the custom provider")
	}
	if c.Transcription.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	if !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}
	if c.Transcription.MaxAttempts < 1 {
		return fmt.Errorf("invalid transcription.max_attempts: %d", c.Transcription.MaxAttempts)
	}
	if c.Transcription.RetryBaseDelay <= 0 {
		return fmt.Errorf("invalid transcription.retry_base_delay: %v", c.Transcription.RetryBaseDelay)
	}
	if c.Transcription.RetryMaxDelay < 0 {
		return fmt.Errorf("invalid transcription.retry_max_delay: %v", c.Transcription.RetryMaxDelay)
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("invalid transcription.timeout: %v", c.Transcription.Timeout)
	}

	if !validModes[c.Injection.Mode] {
		return fmt.Errorf("invalid injection.mode: %s (must be type, paste, or clipboard)", c.Injection.Mode)
	}
	if c.Injection.Mode != "clipboard" && len(c.Injection.Backends) == 0 {
		return fmt.Errorf("invalid injection.backends: empty (mode %s needs ydotool or wtype)", c.Injection.Mode)
	}
	for _, b := range c.Injection.Backends {
		if !validBackends[b] {
			return fmt.Errorf("invalid injection.backends: unknown backend %q", b)
		}
	}
	if c.Injection.TypeTimeout <= 0 {
		return fmt.Errorf("invalid injection.type_timeout: %v", c.Injection.TypeTimeout)
	}
	if c.Injection.ClipboardTimeout <= 0 {
		return fmt.Errorf("invalid injection.clipboard_timeout: %v", c.Injection.ClipboardTimeout)
	}

	if c.Hotkey.Enabled && strings.TrimSpace(c.Hotkey.Chord) == "" {
		return fmt.Errorf("invalid hotkey.chord: empty")
	}

	if !validNotifications[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return fmt.Errorf("invalid logging rotation: max_size_mb=%d max_backups=%d", c.Logging.MaxSizeMB, c.Logging.MaxBackups)
	}

	return nil
}

// CheckAPIKey fails when the configured provider needs a token and none is set.
func (c *Config) CheckAPIKey() error {
	if c.Transcription.Provider == "custom" {
		return nil
	}
	if c.ResolveAPIKey() != "" {
		return nil
	}
	name := baseProviderName(c.Transcription.Provider)
	return fmt.Errorf("%w: not found in config (providers.%s.api_key) or environment (%s or %s)",
		ErrMissingAPIKey, name, envVarForProvider(name), fallbackEnvVar)
}
