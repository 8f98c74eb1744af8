package synth

import (
	"context"
	"fmt"
	"time"
)

// text-to-speech provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderHTTP   Provider = "http"
)

const contentTypeWAV = "audio/wav"

// per-request synthesis settings
type Options struct {
	Voice    string
	Language string
	Model    string
	Speed    float64 // 0 leaves the provider default
}

// audio returned by a provider, usually a WAV file
type Result struct {
	Audio       []byte
	ContentType string
}

// Synthesizer turns one cue's text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts Options) (*Result, error)
	Close() error
}

// creates a synthesizer for provider; baseURL is required for ProviderHTTP
// and optional for ProviderOpenAI
func Factory(
	provider Provider,
	apiKey string,
	baseURL string,
	opts Options,
) (Synthesizer, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAISynthesizer(apiKey, baseURL, opts)
	case ProviderHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("http provider requires a base URL")
		}
		return NewHTTPSynthesizer(baseURL, 2*time.Minute, opts), nil
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", provider)
	}
}

// fills zero fields of opts from defaults
func merge(opts, defaults Options) Options {
	if opts.Voice == "" {
		opts.Voice = defaults.Voice
	}
	if opts.Language == "" {
		opts.Language = defaults.Language
	}
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.Speed == 0 {
		opts.Speed = defaults.Speed
	}
	return opts
}
