package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mgpai22/dubline/internal/audio"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.AudioFormat().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stitch: %w", err))
	}
	if c.Stitch.ClipTimeoutSeconds < 0 {
		errs = append(errs, errors.New("stitch.clip_timeout_seconds must be >= 0"))
	}
	if !audio.IsExportFormat(c.Stitch.Format) {
		errs = append(errs, fmt.Errorf("stitch.format %q is not an export format", c.Stitch.Format))
	}

	switch c.TTS.Provider {
	case "openai":
	case "http":
		if strings.TrimSpace(c.TTS.URL) == "" {
			errs = append(errs, errors.New("tts.url is required for the http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("tts.provider %q must be openai or http", c.TTS.Provider))
	}
	if c.TTS.Speed < 0.25 || c.TTS.Speed > 4.0 {
		errs = append(errs, fmt.Errorf("tts.speed %.2f must be within 0.25-4.0", c.TTS.Speed))
	}
	if c.TTS.Workers < 1 {
		errs = append(errs, errors.New("tts.workers must be positive"))
	}

	switch c.Translate.Provider {
	case "openai", "anthropic", "gemini":
	default:
		errs = append(errs, fmt.Errorf(
			"translate.provider %q must be openai, anthropic or gemini",
			c.Translate.Provider,
		))
	}
	if c.Translate.BatchSize < 1 {
		errs = append(errs, errors.New("translate.batch_size must be positive"))
	}
	if c.Translate.Concurrency < 1 {
		errs = append(errs, errors.New("translate.concurrency must be positive"))
	}

	if c.OpenAI.ChunkMinutes < 1 {
		errs = append(errs, errors.New("openai.chunk_minutes must be positive"))
	}

	if c.Cache.NatsURL != "" {
		if c.Cache.Bucket == "" {
			errs = append(errs, errors.New("cache.bucket is required with cache.nats_url"))
		}
		if c.Cache.TTLHours < 0 {
			errs = append(errs, errors.New("cache.ttl_hours must be >= 0"))
		}
	}

	return errors.Join(errs...)
}
