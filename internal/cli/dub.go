package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mgpai22/dubline/internal/config"
	"github.com/mgpai22/dubline/internal/dub"
	"github.com/mgpai22/dubline/internal/export"
	"github.com/mgpai22/dubline/internal/subtitle"
)

var dubCmd = &cobra.Command{
	Use:   "dub [audio_or_subtitle_file]",
	Short: "Dub an audio file or subtitle track with synthesized speech",
	Long: `Transcribe an audio file, synthesize speech for every cue and stitch
the clips onto the original timeline.

Passing an SRT or VTT file skips transcription and dubs the cues directly.
With --target-language the cue text is translated before synthesis.

Examples:
  dubline dub episode.mp3 --voice nova
  dubline dub episode.mp3 --target-language spanish --sequence 4
  dubline dub episode.srt --tts-provider http --tts-url http://localhost:8000`,
	Args: cobra.ExactArgs(1),
	RunE: runDub,
}

func init() {
	rootCmd.AddCommand(dubCmd)

	dubCmd.Flags().String("voice", "", "TTS voice (default from config)")
	dubCmd.Flags().String("tts-provider", "", "TTS provider (openai, http)")
	dubCmd.Flags().String("tts-model", "", "TTS model")
	dubCmd.Flags().String("tts-url", "", "Base URL of the http TTS provider")
	dubCmd.Flags().
		StringP("target-language", "t", "", "Translate cues to this language before synthesis")
	dubCmd.Flags().
		String("translate-provider", "", "Translation provider (openai, anthropic, gemini)")
	dubCmd.Flags().String("output-dir", "", "Directory for segment_<sequence>.<format>")
	dubCmd.Flags().String("sequence", "1", "Sequence number used in the output name")
	dubCmd.Flags().String("format", "", "Export format (mp3, wav, aac, m4a, flac, ogg)")
	dubCmd.Flags().Int("concurrency", 0, "Parallel transcription and translation workers")
	dubCmd.Flags().Int("workers", 0, "Parallel TTS workers")
	dubCmd.Flags().Int("clip-timeout", 0, "Seconds to wait for a single clip (0 = no limit)")
	dubCmd.Flags().Bool("keep-srt", true, "Write the transcript next to the input as .srt (--keep-srt=false to skip)")
	dubCmd.Flags().
		StringP("api-key", "k", "", "OpenAI API key (or set OPENAI_API_KEY)")
}

// applyDubFlags copies explicitly set flags over the loaded config.
func applyDubFlags(flags *pflag.FlagSet, c *config.Config) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	str("voice", &c.TTS.Voice)
	str("tts-provider", &c.TTS.Provider)
	str("tts-model", &c.TTS.Model)
	str("tts-url", &c.TTS.URL)
	str("target-language", &c.Translate.TargetLanguage)
	str("translate-provider", &c.Translate.Provider)
	str("output-dir", &c.Stitch.OutputDir)
	str("format", &c.Stitch.Format)
	num("concurrency", &c.Translate.Concurrency)
	num("workers", &c.TTS.Workers)
	num("clip-timeout", &c.Stitch.ClipTimeoutSeconds)

	if flags.Changed("keep-srt") {
		c.Stitch.KeepSRT, _ = flags.GetBool("keep-srt")
	}
	c.Stitch.Format = strings.TrimPrefix(strings.ToLower(c.Stitch.Format), ".")
}

// --output wins; otherwise <output_dir>/segment_<sequence>.<format>
func outputPathFor(output, sequence string, c *config.Config) string {
	if output != "" {
		return output
	}
	return export.DefaultOutputPath(c.Stitch.OutputDir, sequence, c.Stitch.Format)
}

func runDub(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	ctx := cmd.Context()

	applyDubFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	sequence, _ := cmd.Flags().GetString("sequence")
	outputFlag, _ := cmd.Flags().GetString("output")
	sourceLang, _ := cmd.Flags().GetString("language")

	if err := fileExists(inputPath); err != nil {
		return err
	}
	fromSubtitles := subtitle.IsSubtitleFile(inputPath)

	if target := cfg.Translate.TargetLanguage; target != "" && sourceLang != "" &&
		strings.EqualFold(strings.TrimSpace(sourceLang), strings.TrimSpace(target)) {
		return fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			sourceLang,
			target,
		)
	}

	outputPath := outputPathFor(outputFlag, sequence, cfg)

	logger.Infow("Starting dub",
		"input", inputPath,
		"output", outputPath,
		"tts_provider", cfg.TTS.Provider,
		"voice", cfg.TTS.Voice,
		"target_language", cfg.Translate.TargetLanguage,
		"from_subtitles", fromSubtitles,
	)

	synthesizer, closeSynth, err := newSynthesizer(ctx, cfg, apiKey, logger)
	if err != nil {
		return err
	}
	defer closeSynth()

	// anthropic and gemini keys only come from config or env
	translateKey := ""
	if cfg.Translate.Provider == "openai" {
		translateKey = apiKey
	}
	translator, err := newTranslator(ctx, cfg, translateKey, sourceLang)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}
	if translator != nil {
		defer func() { _ = translator.Close() }()
	}

	pipeline := &dub.Pipeline{
		Translator:  translator,
		Synthesizer: synthesizer,
		Logger:      logger,
	}
	job := dub.Job{
		Input:         inputPath,
		OutputPath:    outputPath,
		Format:        cfg.AudioFormat(),
		ChunkDuration: chunkDuration(cfg),
		Concurrency:   cfg.Translate.Concurrency,
		Workers:       cfg.TTS.Workers,
		ClipTimeout:   cfg.ClipTimeout(),
		Synth:         synthOptions(cfg),
	}

	var result *dub.Result
	if fromSubtitles {
		result, err = pipeline.RunFromSubtitles(ctx, job)
	} else {
		key, keyErr := requireAPIKey(cfg, "openai", apiKey)
		if keyErr != nil {
			return keyErr
		}
		transcriber, tErr := newTranscriber(cfg, key, sourceLang)
		if tErr != nil {
			return fmt.Errorf("failed to create transcriber: %w", tErr)
		}
		defer func() { _ = transcriber.Close() }()

		pipeline.Transcriber = transcriber
		if cfg.Stitch.KeepSRT {
			job.SRTPath = dub.SRTPathFor(inputPath)
		}
		result, err = pipeline.Run(ctx, job)
	}
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(result.OutputPath)
	fmt.Printf("Dub complete: %s\n", absOutput)
	fmt.Printf("  Cues: %d\n", result.Cues)
	fmt.Printf("  Duration: %s\n", formatMs(result.DurationMs))
	if result.Report.DriftMs > 0 {
		fmt.Printf("  Drift: %dms (overlapping cues)\n", result.Report.DriftMs)
	}
	if result.SRTPath != "" {
		fmt.Printf("  Transcript: %s\n", result.SRTPath)
	}

	return nil
}
