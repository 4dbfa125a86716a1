package transcriber

import (
	"context"
	"fmt"
	"time"
)

// Transcriber turns a finalized WAV recording into a Result.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) Result
}

const (
	OpenAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	GroqEndpoint   = "https://api.groq.com/openai/v1/audio/transcriptions"
)

type Config struct {
	Provider  string
	Endpoint  string
	APIKey    string
	Model     string
	Language  string
	Prompt    string
	TextField string

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Endpoint:    OpenAIEndpoint,
		Model:       "whisper-1",
		TextField:   "text",
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Timeout:     30 * time.Second,
	}
}

func (c Config) withRetryDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay << (c.MaxAttempts - 1)
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// NewUploader picks the request implementation for config.Provider.
func NewUploader(config Config) (Uploader, error) {
	switch config.Provider {
	case "openai", "groq", "custom":
		if config.Endpoint == "" {
			if config.Endpoint = defaultEndpoint(config.Provider); config.Endpoint == "" {
				return nil, fmt.Errorf("provider %s requires an endpoint", config.Provider)
			}
		}
		return NewHTTPUploader(config), nil

	case "openai-sdk":
		return NewOpenAIUploader(config), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// NewTranscriber builds the retrying client for config.
func NewTranscriber(config Config, opts ...Option) (*Client, error) {
	if config.APIKey == "" && config.Provider != "custom" {
		return nil, fmt.Errorf("%s API key required", config.Provider)
	}
	uploader, err := NewUploader(config)
	if err != nil {
		return nil, err
	}
	return NewClient(uploader, config, opts...), nil
}

func defaultEndpoint(provider string) string {
	switch provider {
	case "openai":
		return OpenAIEndpoint
	case "groq":
		return GroqEndpoint
	}
	return ""
}
