package config

import (
	"os"
	"path/filepath"

	"github.com/leonardotrapani/hotdictate/internal/audio"
	"github.com/leonardotrapani/hotdictate/internal/controller"
	"github.com/leonardotrapani/hotdictate/internal/injection"
	"github.com/leonardotrapani/hotdictate/internal/language"
	"github.com/leonardotrapani/hotdictate/internal/logging"
	"github.com/leonardotrapani/hotdictate/internal/recording"
	"github.com/leonardotrapani/hotdictate/internal/transcriber"
)

const fallbackEnvVar = "HOTDICTATE_API_KEY"

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:       c.Recording.SampleRate,
		Channels:         c.Recording.Channels,
		FramesPerBuffer:  c.Recording.FramesPerBuffer,
		Device:           c.Recording.Device,
		MaxDroppedFrames: c.Recording.MaxDroppedFrames,
	}
}

func (c *Config) ToControllerConfig() controller.Config {
	config := controller.DefaultConfig()
	config.Format = audio.Format{
		SampleRate: c.Recording.SampleRate,
		Channels:   c.Recording.Channels,
		BitDepth:   16,
	}
	config.MaxRecording = c.Recording.Timeout
	config.OutputFile = c.OutputFilePath()
	return config
}

// OutputFilePath is recording.output_file, or recording.wav in the cache directory.
func (c *Config) OutputFilePath() string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	dir, err := CacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDir, "recording.wav")
	}
	return filepath.Join(dir, "recording.wav")
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	config := transcriber.Config{
		Provider:    c.Transcription.Provider,
		Endpoint:    c.resolveEndpoint(),
		APIKey:      c.ResolveAPIKey(),
		Model:       c.Transcription.Model,
		Language:    language.Normalize(c.Transcription.Language),
		Prompt:      c.Transcription.Prompt,
		TextField:   c.Transcription.TextField,
		MaxAttempts: c.Transcription.MaxAttempts,
		BaseDelay:   c.Transcription.RetryBaseDelay,
		MaxDelay:    c.Transcription.RetryMaxDelay,
		Timeout:     c.Transcription.Timeout,
	}
	return config
}

func (c *Config) resolveEndpoint() string {
	name := baseProviderName(c.Transcription.Provider)
	if pc, ok := c.Providers[name]; ok && pc.Endpoint != "" {
		return pc.Endpoint
	}
	switch name {
	case "openai":
		return transcriber.OpenAIEndpoint
	case "groq":
		return transcriber.GroqEndpoint
	}
	return ""
}

// ResolveAPIKey returns the token for the configured provider from
// providers.<name>.api_key, the provider's env var, or HOTDICTATE_API_KEY.
func (c *Config) ResolveAPIKey() string {
	name := baseProviderName(c.Transcription.Provider)

	if pc, ok := c.Providers[name]; ok && pc.APIKey != "" {
		return pc.APIKey
	}
	if envVar := envVarForProvider(name); envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	return os.Getenv(fallbackEnvVar)
}

// baseProviderName maps SDK variants onto the provider they share keys with.
func baseProviderName(provider string) string {
	if provider == "openai-sdk" {
		return "openai"
	}
	return provider
}

func envVarForProvider(name string) string {
	switch name {
	case "openai":
		return "OPENAI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	}
	return ""
}

func (c *Config) ToInjectionConfig() injection.Config {
	config := injection.DefaultConfig()
	config.Mode = c.Injection.Mode
	config.Backends = c.Injection.Backends
	config.AlwaysCopyClipboard = c.Injection.AlwaysCopyClipboard
	config.RestoreClipboard = c.Injection.RestoreClipboard
	config.TypeTimeout = c.Injection.TypeTimeout
	config.ClipboardTimeout = c.Injection.ClipboardTimeout
	return config
}

func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}

// RestartRequired reports whether moving from old to c changes settings that
// only take effect when the daemon starts.
func (c *Config) RestartRequired(old *Config) bool {
	return c.Recording != old.Recording || c.Hotkey != old.Hotkey || c.Logging != old.Logging
}
