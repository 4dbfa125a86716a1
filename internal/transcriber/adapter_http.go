package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const maxErrorBody = 4096

// HTTPUploader posts the recording as multipart/form-data to an
// OpenAI-compatible transcription endpoint.
type HTTPUploader struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	model     string
	language  string
	prompt    string
	textField string
}

func NewHTTPUploader(config Config) *HTTPUploader {
	textField := config.TextField
	if textField == "" {
		textField = "text"
	}
	return &HTTPUploader{
		client:    newHTTPClient(),
		endpoint:  config.Endpoint,
		apiKey:    config.APIKey,
		model:     config.Model,
		language:  config.Language,
		prompt:    config.Prompt,
		textField: textField,
	}
}

// newHTTPClient has no Timeout; the deadline comes from the request context.
func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		zap.S().Warnf("http-uploader: http2 unavailable, using HTTP/1.1: %v", err)
	}
	return &http.Client{Transport: tr}
}

func (u *HTTPUploader) Upload(ctx context.Context, wav []byte) (string, error) {
	body, contentType, err := u.buildBody(wav)
	if err != nil {
		return "", newRequestError("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", newRequestError("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	start := time.Now()
	resp, err := u.client.Do(req)
	if err != nil {
		zap.S().Debugf("http-uploader: request failed after %v: %v", time.Since(start), err)
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		zap.S().Debugf("http-uploader: status %d after %v", resp.StatusCode, time.Since(start))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: response is not JSON", ErrMalformedResponse)
	}
	text := gjson.GetBytes(raw, u.textField)
	if !text.Exists() {
		return "", fmt.Errorf("%w: no %q field", ErrMalformedResponse, u.textField)
	}
	if text.Type != gjson.String {
		return "", fmt.Errorf("%w: %q is %s, not a string", ErrMalformedResponse, u.textField, text.Type)
	}

	zap.S().Debugf("http-uploader: %d bytes answered in %v", len(wav), time.Since(start))
	return text.String(), nil
}

func (u *HTTPUploader) buildBody(wav []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="recording.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}

	if u.model != "" {
		if err := writer.WriteField("model", u.model); err != nil {
			return nil, "", fmt.Errorf("write model: %w", err)
		}
	}
	if u.language != "" {
		if err := writer.WriteField("language", u.language); err != nil {
			return nil, "", fmt.Errorf("write language: %w", err)
		}
	}
	if u.prompt != "" {
		if err := writer.WriteField("prompt", u.prompt); err != nil {
			return nil, "", fmt.Errorf("write prompt: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
