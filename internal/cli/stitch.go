package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/dubline/internal/audio"
	"github.com/mgpai22/dubline/internal/dub"
	"github.com/mgpai22/dubline/internal/export"
	"github.com/mgpai22/dubline/internal/subtitle"
	"github.com/mgpai22/dubline/internal/timeline"
)

var stitchCmd = &cobra.Command{
	Use:   "stitch [subtitle_file] [clips_dir]",
	Short: "Stitch pre-rendered clips onto a subtitle timeline",
	Long: `Lay the clips in clips_dir onto the cue timeline of a subtitle file.

Clip i (0-based, in cue order) is read from segment_<i>.<ext>; any audio
format ffmpeg can read is accepted. No network access is needed.

Examples:
  dubline stitch episode.srt ./mp3s
  dubline stitch episode.vtt ./clips -o dubbed.wav`,
	Args: cobra.ExactArgs(2),
	RunE: runStitch,
}

func init() {
	rootCmd.AddCommand(stitchCmd)

	stitchCmd.Flags().String("output-dir", "", "Directory for segment_<sequence>.<format>")
	stitchCmd.Flags().String("sequence", "1", "Sequence number used in the output name")
	stitchCmd.Flags().String("format", "", "Export format (mp3, wav, aac, m4a, flac, ogg)")
}

func runStitch(cmd *cobra.Command, args []string) error {
	subtitlePath, clipsDir := args[0], args[1]
	ctx := cmd.Context()

	applyDubFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sequence, _ := cmd.Flags().GetString("sequence")
	outputFlag, _ := cmd.Flags().GetString("output")

	if info, err := os.Stat(clipsDir); err != nil || !info.IsDir() {
		return fmt.Errorf("clips directory not found: %s", clipsDir)
	}

	sub, err := subtitle.Open(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	cues := sub.Cues()

	outputPath := outputPathFor(outputFlag, sequence, cfg)
	logger.Infow("Stitching clips",
		"subtitle", subtitlePath,
		"clips", clipsDir,
		"cues", len(cues),
		"output", outputPath,
	)

	track, err := stitchDir(ctx, cues, clipsDir, cfg.AudioFormat())
	if err != nil {
		return err
	}

	if err := export.Export(ctx, track, outputPath); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Stitched track written: %s\n", absOutput)
	fmt.Printf("  Cues: %d\n", len(cues))
	fmt.Printf("  Duration: %s\n", formatMs(track.DurationMs()))
	return nil
}

func stitchDir(
	ctx context.Context,
	cues []timeline.Cue,
	dir string,
	format audio.Format,
) (*audio.Buffer, error) {
	tempDir, err := os.MkdirTemp("", "dubline-stitch-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	src := dub.DirSource{
		Dir:     dir,
		Decoder: audio.FFmpegDecoder{Format: format, TempDir: tempDir},
		Format:  format,
		Cues:    cues,
	}
	track, err := timeline.StitchFrom(ctx, cues, src, 0)
	if err != nil {
		return nil, fmt.Errorf("stitching failed: %w", err)
	}
	return track, nil
}
