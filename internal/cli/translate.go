package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/dubline/internal/subtitle"
	"github.com/mgpai22/dubline/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate subtitles to another language using AI",
	Long: `Translate an existing subtitle file, keeping every cue's timing.

The result can be fed back to "dubline dub" to voice a reviewed
translation. The --overlay flag writes bilingual cues with the translated
text first, followed by the original text on the next line.

Examples:
  dubline translate episode.srt --target-language japanese
  dubline translate episode.vtt -l korean --target-language english --provider anthropic
  dubline translate episode.srt --target-language es --overlay -o review.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		Bool("overlay", false, "Overlay translated text with original (bilingual subtitles)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set OPENAI_API_KEY/ANTHROPIC_API_KEY/GEMINI_API_KEY)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (provider-specific, uses sensible defaults)")
	translateCmd.Flags().
		String("provider", "", "Translation provider (openai, anthropic, gemini)")
	translateCmd.Flags().
		Int("concurrency", 0, "Number of parallel translation workers")
	translateCmd.Flags().
		Int("batch-size", 0, "Number of subtitle entries per API request")

	_ = translateCmd.MarkFlagRequired("target-language")
}

// output name next to the input, e.g. episode.ja.srt or episode.ja.overlay.srt
func translatedPath(input, target string, overlay bool) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if overlay {
		return fmt.Sprintf("%s.%s.overlay%s", base, target, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, target, ext)
}

// translated line above the original
func applyOverlay(sub *subtitle.Subtitle, originals []string) {
	for i := range sub.Entries {
		if i >= len(originals) || sub.Entries[i].Text == originals[i] {
			continue
		}
		sub.Entries[i].Text = sub.Entries[i].Text + "\n" + originals[i]
	}
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := cmd.Context()

	flags := cmd.Flags()
	if flags.Changed("target-language") {
		cfg.Translate.TargetLanguage, _ = flags.GetString("target-language")
	}
	if flags.Changed("provider") {
		cfg.Translate.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("model") {
		cfg.Translate.Model, _ = flags.GetString("model")
	}
	if flags.Changed("concurrency") {
		cfg.Translate.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("batch-size") {
		cfg.Translate.BatchSize, _ = flags.GetInt("batch-size")
	}

	overlay, _ := flags.GetBool("overlay")
	apiKey, _ := flags.GetString("api-key")
	outputPath, _ := flags.GetString("output")
	inputLang, _ := flags.GetString("language")
	targetLang := cfg.Translate.TargetLanguage

	if err := fileExists(subtitlePath); err != nil {
		return err
	}
	if !subtitle.IsSubtitleFile(subtitlePath) {
		return fmt.Errorf(
			"unsupported subtitle format %q: use .srt or .vtt",
			filepath.Ext(subtitlePath),
		)
	}
	if strings.TrimSpace(targetLang) == "" {
		return fmt.Errorf("target language is required")
	}
	if inputLang != "" &&
		strings.EqualFold(strings.TrimSpace(inputLang), strings.TrimSpace(targetLang)) {
		return fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			inputLang,
			targetLang,
		)
	}
	if cfg.Translate.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", cfg.Translate.Concurrency)
	}
	if cfg.Translate.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", cfg.Translate.BatchSize)
	}

	if outputPath == "" {
		outputPath = translatedPath(subtitlePath, targetLang, overlay)
	}

	logger.Infow("Starting subtitle translation",
		"input", subtitlePath,
		"output", outputPath,
		"provider", cfg.Translate.Provider,
		"target_language", targetLang,
		"input_language", inputLang,
		"overlay", overlay,
	)

	sub, err := subtitle.Open(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(sub.Entries) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}
	logger.Infow("Parsed subtitle file",
		"entries", len(sub.Entries),
		"format", sub.Format,
	)

	translator, err := newTranslator(ctx, cfg, apiKey, inputLang)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}
	defer func() { _ = translator.Close() }()

	originals := sub.Texts()

	logger.Infow("Translating subtitles", "concurrency", cfg.Translate.Concurrency)
	if err := translate.TranslateSubtitle(ctx, translator, sub, cfg.Translate.Concurrency); err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	if overlay {
		applyOverlay(sub, originals)
	}
	sub.Language = targetLang

	logger.Infow("Writing output file")
	if err := subtitle.WriteFile(sub, outputPath); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles translated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", len(sub.Entries))
	fmt.Printf("  Target language: %s\n", targetLang)
	if overlay {
		fmt.Printf("  Mode: bilingual overlay\n")
	}

	return nil
}
