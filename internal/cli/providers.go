package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mgpai22/dubline/internal/config"
	"github.com/mgpai22/dubline/internal/logging"
	"github.com/mgpai22/dubline/internal/objectstore"
	"github.com/mgpai22/dubline/internal/synth"
	"github.com/mgpai22/dubline/internal/transcribe"
	"github.com/mgpai22/dubline/internal/translate"
)

// env variable named in the "API key is required" error for a provider
func apiKeyEnv(provider string) string {
	switch provider {
	case string(translate.ProviderAnthropic):
		return "ANTHROPIC_API_KEY"
	case string(translate.ProviderGemini):
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// flag value wins over the configured key
func requireAPIKey(c *config.Config, provider, flagKey string) (string, error) {
	key := strings.TrimSpace(flagKey)
	if key == "" {
		key = c.APIKey(provider)
	}
	if key == "" {
		return "", fmt.Errorf(
			"API key is required: use --api-key flag or set %s environment variable",
			apiKeyEnv(provider),
		)
	}
	return key, nil
}

func newTranscriber(c *config.Config, apiKey, sourceLang string) (transcribe.Transcriber, error) {
	return transcribe.Factory(transcribe.ProviderOpenAI, apiKey, c.OpenAI.BaseURL, transcribe.Options{
		Language:           sourceLang,
		TranscriptLanguage: c.OpenAI.TranscriptLanguage,
		Model:              c.OpenAI.WhisperModel,
		Prompt:             c.OpenAI.Prompt,
	})
}

// nil translator when no target language is configured
func newTranslator(
	ctx context.Context,
	c *config.Config,
	flagKey, sourceLang string,
) (translate.Translator, error) {
	if strings.TrimSpace(c.Translate.TargetLanguage) == "" {
		return nil, nil
	}
	key, err := requireAPIKey(c, c.Translate.Provider, flagKey)
	if err != nil {
		return nil, err
	}
	return translate.Factory(
		ctx,
		translate.Provider(c.Translate.Provider),
		key,
		c.BaseURL(c.Translate.Provider),
		translate.Options{
			InputLanguage:  sourceLang,
			TargetLanguage: c.Translate.TargetLanguage,
			Model:          c.Translate.Model,
			Prompt:         c.Translate.Prompt,
			BatchSize:      c.Translate.BatchSize,
		},
	)
}

func synthOptions(c *config.Config) synth.Options {
	return synth.Options{
		Voice:    c.TTS.Voice,
		Language: c.TTS.Language,
		Model:    c.TTS.Model,
		Speed:    c.TTS.Speed,
	}
}

// newSynthesizer builds the TTS backend and, when cache.nats_url is set, wraps
// it with the object store cache. The returned closer releases both. An http
// backend must pass its health check first.
func newSynthesizer(
	ctx context.Context,
	c *config.Config,
	flagKey string,
	log *logging.Logger,
) (synth.Synthesizer, func(), error) {
	provider := synth.Provider(c.TTS.Provider)

	var (
		key     string
		baseURL string
		err     error
	)
	switch provider {
	case synth.ProviderHTTP:
		baseURL = c.TTS.URL
	default:
		key, err = requireAPIKey(c, string(synth.ProviderOpenAI), flagKey)
		if err != nil {
			return nil, nil, err
		}
		baseURL = c.OpenAI.BaseURL
	}

	base, err := synth.Factory(provider, key, baseURL, synthOptions(c))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	if hs, ok := base.(*synth.HTTPSynthesizer); ok {
		if err := hs.HealthCheck(ctx); err != nil {
			_ = base.Close()
			return nil, nil, fmt.Errorf("TTS server not ready: %w", err)
		}
	}

	if c.Cache.NatsURL == "" {
		return base, func() { _ = base.Close() }, nil
	}

	store, err := objectstore.Connect(c.Cache.NatsURL, c.Cache.Bucket, c.CacheTTL())
	if err != nil {
		_ = base.Close()
		return nil, nil, err
	}
	log.Infow("Clip cache enabled",
		"nats_url", c.Cache.NatsURL,
		"bucket", store.Bucket(),
	)

	namespace := c.TTS.Provider + "|" + baseURL
	cached := synth.NewCachingSynthesizer(base, store, namespace, log)
	return cached, func() {
		_ = cached.Close()
		_ = store.Close()
	}, nil
}

func chunkDuration(c *config.Config) time.Duration {
	return time.Duration(c.OpenAI.ChunkMinutes) * time.Minute
}

func fileExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	return nil
}
