package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIUploader sends the recording through the go-openai SDK.
type OpenAIUploader struct {
	client *openai.Client
	config Config
}

func NewOpenAIUploader(config Config) *OpenAIUploader {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if base := sdkBaseURL(config.Endpoint); base != "" {
		clientConfig.BaseURL = base
	}
	return &OpenAIUploader{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// sdkBaseURL strips the route the SDK appends itself.
func sdkBaseURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), "/audio/transcriptions")
}

func (u *OpenAIUploader) Upload(ctx context.Context, wav []byte) (string, error) {
	req := openai.AudioRequest{
		Model:    u.config.Model,
		Reader:   bytes.NewReader(wav),
		FilePath: "recording.wav",
		Language: u.config.Language,
		Prompt:   u.config.Prompt,
	}

	start := time.Now()
	resp, err := u.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		zap.S().Debugf("openai-uploader: API call failed after %v: %v", duration, err)
		return "", mapSDKError(err)
	}

	zap.S().Debugf("openai-uploader: transcribed %d bytes in %v", len(wav), duration)
	return resp.Text, nil
}

// mapSDKError converts go-openai errors to HTTPError so the retry policy sees
// the status code.
func mapSDKError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &HTTPError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("openai transcription: %w", err)
}
