package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTPSynthesizer talks to a self-hosted TTS server that answers
// POST /v1/generate/speech with a WAV body.
type HTTPSynthesizer struct {
	httpClient *http.Client
	baseURL    string
	defaults   Options
}

type speechRequest struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice,omitempty"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed,omitempty"`
}

type speechErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

func NewHTTPSynthesizer(baseURL string, timeout time.Duration, opts Options) *HTTPSynthesizer {
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &HTTPSynthesizer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		defaults:   opts,
	}
}

func (s *HTTPSynthesizer) Synthesize(
	ctx context.Context,
	text string,
	opts Options,
) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	opts = merge(opts, s.defaults)

	body, err := json.Marshal(speechRequest{
		Text:     text,
		Voice:    opts.Voice,
		Language: opts.Language,
		Speed:    opts.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+apiGenerateSpeech,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", contentTypeWAV)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, contentTypeWAV) &&
		!strings.HasPrefix(contentType, "audio/x-wav") {
		return nil, fmt.Errorf("unexpected content type: expected audio/wav, got %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty audio data")
	}

	return &Result{Audio: data, ContentType: contentTypeWAV}, nil
}

// HealthCheck fails when the server is unreachable or not healthy.
func (s *HTTPSynthesizer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}
	return nil
}

func (s *HTTPSynthesizer) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp speechErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		return fmt.Errorf(
			"TTS service error (%s): %s (code: %s)",
			resp.Status,
			errResp.Detail,
			errResp.ErrorCode,
		)
	}
	return fmt.Errorf("TTS service returned non-OK status: %s, body: %s", resp.Status, string(body))
}
