package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			SampleRate:       44100,
			Channels:         1,
			FramesPerBuffer:  1024,
			Device:           "",
			MaxDroppedFrames: 0,
			Timeout:          5 * time.Minute,
			OutputFile:       "",
		},
		Transcription: TranscriptionConfig{
			Provider:       "openai",
			Model:          "whisper-1",
			Language:       "",
			TextField:      "text",
			MaxAttempts:    3,
			RetryBaseDelay: time.Second,
			RetryMaxDelay:  10 * time.Second,
			Timeout:        30 * time.Second,
		},
		Providers: make(map[string]ProviderConfig),
		Injection: InjectionConfig{
			Mode:             "type",
			Backends:         []string{"ydotool", "wtype"},
			RestoreClipboard: true,
			TypeTimeout:      5 * time.Second,
			ClipboardTimeout: 3 * time.Second,
		},
		Hotkey: HotkeyConfig{
			Enabled: true,
			Chord:   "ctrl+cmd+h",
		},
		Notifications: NotificationsConfig{
			Type: "desktop",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
