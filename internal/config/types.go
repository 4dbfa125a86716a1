package config

import "time"

type Config struct {
	Recording     RecordingConfig           `toml:"recording"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Injection     InjectionConfig           `toml:"injection"`
	Hotkey        HotkeyConfig              `toml:"hotkey"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Logging       LoggingConfig             `toml:"logging"`
}

// ProviderConfig holds credentials and an optional endpoint override for a provider
type ProviderConfig struct {
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"`
}

type RecordingConfig struct {
	SampleRate       int           `toml:"sample_rate"`
	Channels         int           `toml:"channels"`
	FramesPerBuffer  int           `toml:"frames_per_buffer"`
	Device           string        `toml:"device"`
	MaxDroppedFrames int           `toml:"max_dropped_frames"` // 0 = unlimited
	Timeout          time.Duration `toml:"timeout"`            // auto-stop; 0 = never
	OutputFile       string        `toml:"output_file"`        // empty = cache dir
}

type TranscriptionConfig struct {
	Provider       string        `toml:"provider"` // "openai", "groq", "custom", "openai-sdk"
	Model          string        `toml:"model"`
	Language       string        `toml:"language"`
	Prompt         string        `toml:"prompt"`
	TextField      string        `toml:"text_field"`
	MaxAttempts    int           `toml:"max_attempts"`
	RetryBaseDelay time.Duration `toml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `toml:"retry_max_delay"`
	Timeout        time.Duration `toml:"timeout"`
}

type InjectionConfig struct {
	Mode                string        `toml:"mode"` // "type", "paste", "clipboard"
	Backends            []string      `toml:"backends"`
	AlwaysCopyClipboard bool          `toml:"always_copy_clipboard"`
	RestoreClipboard    bool          `toml:"restore_clipboard"`
	TypeTimeout         time.Duration `toml:"type_timeout"`
	ClipboardTimeout    time.Duration `toml:"clipboard_timeout"`
}

type HotkeyConfig struct {
	Enabled bool   `toml:"enabled"`
	Chord   string `toml:"chord"`
}

type NotificationsConfig struct {
	Type string `toml:"type"` // "desktop", "log", "none"
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}
