// Package config loads dubline settings from defaults, an optional TOML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/mgpai22/dubline/internal/audio"
)

const (
	fileName  = "dubline"
	envPrefix = "DUBLINE"
)

// Config is the root configuration.
type Config struct {
	OpenAI    OpenAI    `mapstructure:"openai" toml:"openai"`
	Anthropic Anthropic `mapstructure:"anthropic" toml:"anthropic"`
	Gemini    Gemini    `mapstructure:"gemini" toml:"gemini"`
	TTS       TTS       `mapstructure:"tts" toml:"tts"`
	Translate Translate `mapstructure:"translate" toml:"translate"`
	Stitch    Stitch    `mapstructure:"stitch" toml:"stitch"`
	Cache     Cache     `mapstructure:"cache" toml:"cache"`
	Logging   Logging   `mapstructure:"logging" toml:"logging"`
}

// OpenAI holds the key and Whisper settings.
type OpenAI struct {
	APIKey       string `mapstructure:"api_key" toml:"api_key"`
	BaseURL      string `mapstructure:"base_url" toml:"base_url"`
	WhisperModel string `mapstructure:"whisper_model" toml:"whisper_model"`
	Prompt       string `mapstructure:"prompt" toml:"prompt"`
	// transcript language; "english" routes through the translations endpoint
	TranscriptLanguage string `mapstructure:"transcript_language" toml:"transcript_language"`
	ChunkMinutes       int    `mapstructure:"chunk_minutes" toml:"chunk_minutes"`
}

type Anthropic struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key"`
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
}

type Gemini struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key"`
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
}

// TTS selects the speech backend.
type TTS struct {
	Provider string  `mapstructure:"provider" toml:"provider"` // openai or http
	Model    string  `mapstructure:"model" toml:"model"`
	Voice    string  `mapstructure:"voice" toml:"voice"`
	URL      string  `mapstructure:"url" toml:"url"` // base URL of the http provider
	Language string  `mapstructure:"language" toml:"language"`
	Speed    float64 `mapstructure:"speed" toml:"speed"`
	Workers  int     `mapstructure:"workers" toml:"workers"`
}

// Translate configures the optional LLM pass over cue text.
type Translate struct {
	Provider       string `mapstructure:"provider" toml:"provider"` // openai, anthropic or gemini
	Model          string `mapstructure:"model" toml:"model"`
	TargetLanguage string `mapstructure:"target_language" toml:"target_language"`
	BatchSize      int    `mapstructure:"batch_size" toml:"batch_size"`
	Concurrency    int    `mapstructure:"concurrency" toml:"concurrency"`
	Prompt         string `mapstructure:"prompt" toml:"prompt"`
}

// Stitch holds the run format and output naming.
type Stitch struct {
	SampleRate         int    `mapstructure:"sample_rate" toml:"sample_rate"`
	Channels           int    `mapstructure:"channels" toml:"channels"`
	BitDepth           int    `mapstructure:"bit_depth" toml:"bit_depth"`
	ClipTimeoutSeconds int    `mapstructure:"clip_timeout_seconds" toml:"clip_timeout_seconds"`
	OutputDir          string `mapstructure:"output_dir" toml:"output_dir"`
	Format             string `mapstructure:"format" toml:"format"`
	KeepSRT            bool   `mapstructure:"keep_srt" toml:"keep_srt"`
}

// Cache enables the NATS object store clip cache when NatsURL is set.
type Cache struct {
	NatsURL  string `mapstructure:"nats_url" toml:"nats_url"`
	Bucket   string `mapstructure:"bucket" toml:"bucket"`
	TTLHours int    `mapstructure:"ttl_hours" toml:"ttl_hours"`
}

type Logging struct {
	Verbose bool `mapstructure:"verbose" toml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	format := audio.DefaultFormat()
	return Config{
		OpenAI: OpenAI{
			WhisperModel:       "whisper-1",
			TranscriptLanguage: "english",
			ChunkMinutes:       10,
		},
		TTS: TTS{
			Provider: "openai",
			Model:    "tts-1",
			Voice:    "alloy",
			Speed:    1.0,
			Workers:  3,
		},
		Translate: Translate{
			Provider:    "openai",
			BatchSize:   50,
			Concurrency: 3,
		},
		Stitch: Stitch{
			SampleRate:         format.SampleRate,
			Channels:           format.Channels,
			BitDepth:           format.BitDepth,
			ClipTimeoutSeconds: 120,
			OutputDir:          ".",
			Format:             "mp3",
			KeepSRT:            true,
		},
		Cache: Cache{
			Bucket:   "dubline-clips",
			TTLHours: 24 * 7,
		},
	}
}

// AudioFormat is the PCM format every clip is normalised to.
func (c *Config) AudioFormat() audio.Format {
	return audio.Format{
		SampleRate: c.Stitch.SampleRate,
		Channels:   c.Stitch.Channels,
		BitDepth:   c.Stitch.BitDepth,
	}
}

// ClipTimeout bounds the wait for a single clip; 0 means no bound.
func (c *Config) ClipTimeout() time.Duration {
	return time.Duration(c.Stitch.ClipTimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// APIKey returns the key configured for an LLM provider.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "anthropic":
		return c.Anthropic.APIKey
	case "gemini":
		return c.Gemini.APIKey
	default:
		return c.OpenAI.APIKey
	}
}

// BaseURL returns the endpoint override for an LLM provider.
func (c *Config) BaseURL(provider string) string {
	switch provider {
	case "anthropic":
		return c.Anthropic.BaseURL
	case "gemini":
		return c.Gemini.BaseURL
	default:
		return c.OpenAI.BaseURL
	}
}

// DefaultConfigPath is where `config init` writes when no path is given.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, fileName, fileName+".toml"), nil
}

// Load resolves settings with precedence env > file > defaults. An empty path
// searches ./dubline.toml then the user config dir; a missing file there is
// not an error. The returned string is the file used, if any.
func Load(path string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, fileName))
		}
	}

	// DUBLINE_TTS_VOICE, DUBLINE_STITCH_SAMPLE_RATE, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// provider keys also come from their conventional variables
	for key, env := range map[string]string{
		"openai.api_key":    "OPENAI_API_KEY",
		"anthropic.api_key": "ANTHROPIC_API_KEY",
		"gemini.api_key":    "GEMINI_API_KEY",
	} {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, env); err != nil {
			return nil, "", fmt.Errorf("bind %s: %w", env, err)
		}
	}

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, used, nil
}

// registers every field of def so AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("openai.api_key", def.OpenAI.APIKey)
	v.SetDefault("openai.base_url", def.OpenAI.BaseURL)
	v.SetDefault("openai.whisper_model", def.OpenAI.WhisperModel)
	v.SetDefault("openai.prompt", def.OpenAI.Prompt)
	v.SetDefault("openai.transcript_language", def.OpenAI.TranscriptLanguage)
	v.SetDefault("openai.chunk_minutes", def.OpenAI.ChunkMinutes)
	v.SetDefault("anthropic.api_key", def.Anthropic.APIKey)
	v.SetDefault("anthropic.base_url", def.Anthropic.BaseURL)
	v.SetDefault("gemini.api_key", def.Gemini.APIKey)
	v.SetDefault("gemini.base_url", def.Gemini.BaseURL)
	v.SetDefault("tts.provider", def.TTS.Provider)
	v.SetDefault("tts.model", def.TTS.Model)
	v.SetDefault("tts.voice", def.TTS.Voice)
	v.SetDefault("tts.url", def.TTS.URL)
	v.SetDefault("tts.language", def.TTS.Language)
	v.SetDefault("tts.speed", def.TTS.Speed)
	v.SetDefault("tts.workers", def.TTS.Workers)
	v.SetDefault("translate.provider", def.Translate.Provider)
	v.SetDefault("translate.model", def.Translate.Model)
	v.SetDefault("translate.target_language", def.Translate.TargetLanguage)
	v.SetDefault("translate.batch_size", def.Translate.BatchSize)
	v.SetDefault("translate.concurrency", def.Translate.Concurrency)
	v.SetDefault("translate.prompt", def.Translate.Prompt)
	v.SetDefault("stitch.sample_rate", def.Stitch.SampleRate)
	v.SetDefault("stitch.channels", def.Stitch.Channels)
	v.SetDefault("stitch.bit_depth", def.Stitch.BitDepth)
	v.SetDefault("stitch.clip_timeout_seconds", def.Stitch.ClipTimeoutSeconds)
	v.SetDefault("stitch.output_dir", def.Stitch.OutputDir)
	v.SetDefault("stitch.format", def.Stitch.Format)
	v.SetDefault("stitch.keep_srt", def.Stitch.KeepSRT)
	v.SetDefault("cache.nats_url", def.Cache.NatsURL)
	v.SetDefault("cache.bucket", def.Cache.Bucket)
	v.SetDefault("cache.ttl_hours", def.Cache.TTLHours)
	v.SetDefault("logging.verbose", def.Logging.Verbose)
}

const sampleHeader = `# dubline configuration
#
# Every key can be overridden with DUBLINE_<SECTION>_<KEY>, for example
# DUBLINE_TTS_VOICE=nova. API keys are also read from OPENAI_API_KEY,
# ANTHROPIC_API_KEY and GEMINI_API_KEY.

`

// WriteSample writes the defaults as a commented TOML file. An existing file
// is only replaced when overwrite is set.
func WriteSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append([]byte(sampleHeader), data...), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
