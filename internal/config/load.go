package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const appDir = "hotdictate"

// GetConfigPath returns $XDG_CONFIG_HOME/hotdictate/config.toml, creating the directory.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, appDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns $XDG_CACHE_HOME/hotdictate.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(cacheDir, appDir), nil
}

// ResolvePath returns path, or the default config path when path is empty.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetConfigPath()
}

// Load reads the config at path (the default location when empty). A missing
// file is created with defaults first. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	configPath, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		zap.S().Infof("config: no config file found at %s, creating with defaults", configPath)
		if err := Save(configPath, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	zap.S().Debugf("config: loading configuration from %s", configPath)
	config := DefaultConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	for _, key := range meta.Undecoded() {
		zap.S().Warnf("config: unknown key %s in %s", key, configPath)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}
	return config, nil
}

// Save writes config to path as commented TOML.
func Save(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var b bytes.Buffer
	writeConfig(&b, config)

	// api keys may be present
	if err := os.WriteFile(path, b.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func writeConfig(b *bytes.Buffer, c *Config) {
	b.WriteString("# hotdictate configuration\n")
	b.WriteString("# Changes to [transcription], [providers], [injection] and [notifications]\n")
	b.WriteString("# apply to the next recording without restarting the daemon.\n\n")

	b.WriteString("[recording]\n")
	fmt.Fprintf(b, "  sample_rate = %d          # Hz\n", c.Recording.SampleRate)
	fmt.Fprintf(b, "  channels = %d\n", c.Recording.Channels)
	fmt.Fprintf(b, "  frames_per_buffer = %d     # samples per read\n", c.Recording.FramesPerBuffer)
	fmt.Fprintf(b, "  device = %q                # PortAudio input name, empty = default microphone\n", c.Recording.Device)
	fmt.Fprintf(b, "  max_dropped_frames = %d    # end capture after this many overflows, 0 = unlimited\n", c.Recording.MaxDroppedFrames)
	fmt.Fprintf(b, "  timeout = %q               # stop automatically after this long, \"0s\" = never\n", c.Recording.Timeout.String())
	fmt.Fprintf(b, "  output_file = %q           # transient WAV, empty = cache directory\n\n", c.Recording.OutputFile)

	b.WriteString("[transcription]\n")
	fmt.Fprintf(b, "  provider = %q              # \"openai\", \"groq\", \"custom\" or \"openai-sdk\"\n", c.Transcription.Provider)
	fmt.Fprintf(b, "  model = %q\n", c.Transcription.Model)
	fmt.Fprintf(b, "  language = %q              # empty = auto-detect\n", c.Transcription.Language)
	fmt.Fprintf(b, "  prompt = %q\n", c.Transcription.Prompt)
	fmt.Fprintf(b, "  text_field = %q            # JSON path of the text in the response\n", c.Transcription.TextField)
	fmt.Fprintf(b, "  max_attempts = %d\n", c.Transcription.MaxAttempts)
	fmt.Fprintf(b, "  retry_base_delay = %q\n", c.Transcription.RetryBaseDelay.String())
	fmt.Fprintf(b, "  retry_max_delay = %q\n", c.Transcription.RetryMaxDelay.String())
	fmt.Fprintf(b, "  timeout = %q\n\n", c.Transcription.Timeout.String())

	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := c.Providers[name]
		fmt.Fprintf(b, "[providers.%s]\n", name)
		fmt.Fprintf(b, "  api_key = %q\n", p.APIKey)
		if p.Endpoint != "" {
			fmt.Fprintf(b, "  endpoint = %q\n", p.Endpoint)
		}
		b.WriteString("\n")
	}

	b.WriteString("[injection]\n")
	fmt.Fprintf(b, "  mode = %q                  # \"type\", \"paste\" or \"clipboard\"\n", c.Injection.Mode)
	quoted := make([]string, len(c.Injection.Backends))
	for i, name := range c.Injection.Backends {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	fmt.Fprintf(b, "  backends = [%s]\n", strings.Join(quoted, ", "))
	fmt.Fprintf(b, "  always_copy_clipboard = %t\n", c.Injection.AlwaysCopyClipboard)
	fmt.Fprintf(b, "  restore_clipboard = %t\n", c.Injection.RestoreClipboard)
	fmt.Fprintf(b, "  type_timeout = %q\n", c.Injection.TypeTimeout.String())
	fmt.Fprintf(b, "  clipboard_timeout = %q\n\n", c.Injection.ClipboardTimeout.String())

	b.WriteString("[hotkey]\n")
	fmt.Fprintf(b, "  enabled = %t                # global X11 hook; on Wayland bind `hotdictate toggle` instead\n", c.Hotkey.Enabled)
	fmt.Fprintf(b, "  chord = %q\n\n", c.Hotkey.Chord)

	b.WriteString("[notifications]\n")
	fmt.Fprintf(b, "  type = %q                  # \"desktop\", \"log\" or \"none\"\n\n", c.Notifications.Type)

	b.WriteString("[logging]\n")
	fmt.Fprintf(b, "  level = %q                 # \"debug\", \"info\", \"warn\" or \"error\"\n", c.Logging.Level)
	fmt.Fprintf(b, "  file = %q                  # empty = stderr only\n", c.Logging.File)
	fmt.Fprintf(b, "  max_size_mb = %d\n", c.Logging.MaxSizeMB)
	fmt.Fprintf(b, "  max_backups = %d\n", c.Logging.MaxBackups)
}
