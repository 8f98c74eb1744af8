package synth

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIModel = "tts-1"
	defaultOpenAIVoice = "alloy"
)

// implements Synthesizer using the OpenAI speech endpoint
type OpenAISynthesizer struct {
	client   openai.Client
	defaults Options
}

func NewOpenAISynthesizer(
	apiKey string,
	baseURL string,
	opts Options,
	extra ...option.RequestOption,
) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, extra...)

	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	if opts.Voice == "" {
		opts.Voice = defaultOpenAIVoice
	}

	return &OpenAISynthesizer{
		client:   openai.NewClient(reqOpts...),
		defaults: opts,
	}, nil
}

func (s *OpenAISynthesizer) Synthesize(
	ctx context.Context,
	text string,
	opts Options,
) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	opts = merge(opts, s.defaults)

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(opts.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(opts.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}
	if opts.Speed > 0 {
		params.Speed = openai.Float(opts.Speed)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("received empty audio data")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeWAV
	}

	return &Result{Audio: data, ContentType: contentType}, nil
}

func (s *OpenAISynthesizer) Close() error {
	return nil
}
