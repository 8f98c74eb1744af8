package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mgpai22/dubline/internal/audio"
	"github.com/mgpai22/dubline/internal/subtitle"
)

// transcription result
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
	Close() error
}

type ConcurrentTranscriber interface {
	Transcriber
	TranscribeWithChunks(
		ctx context.Context,
		chunks []audio.ChunkInfo,
		concurrency int,
	) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
)

// transcription options
type Options struct {
	Language           string // Source language of audio
	TranscriptLanguage string // Output language for transcript (default: "native")
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	provider Provider,
	apiKey string,
	baseURL string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAITranscriber(apiKey, baseURL, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// CanonicalLanguage maps a language name or tag to its BCP 47 base ("ko-KR"
// -> "ko"). Whisper reports full names ("korean"), which are returned
// lowercased when they do not parse as a tag.
func CanonicalLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if tag, err := language.Parse(lang); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	switch strings.ToLower(lang) {
	case "english":
		return "en"
	}
	return strings.ToLower(lang)
}
