// Package dub runs the whole dubbing pipeline: transcribe the source audio,
// optionally translate the cue text, synthesize one clip per cue, stitch the
// clips onto the cue timeline and export the track.
package dub

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mgpai22/dubline/internal/audio"
	"github.com/mgpai22/dubline/internal/export"
	"github.com/mgpai22/dubline/internal/logging"
	"github.com/mgpai22/dubline/internal/subtitle"
	"github.com/mgpai22/dubline/internal/synth"
	"github.com/mgpai22/dubline/internal/timeline"
	"github.com/mgpai22/dubline/internal/transcribe"
	"github.com/mgpai22/dubline/internal/translate"
)

// Job describes one dubbing run.
type Job struct {
	Input      string // source audio for Run, subtitle file for RunFromSubtitles
	OutputPath string
	SRTPath    string // transcript is written here when set

	Format        audio.Format  // run format every clip is normalised to
	ChunkDuration time.Duration // transcription chunk size; 0 sends the file whole
	Concurrency   int           // transcription and translation workers
	Workers       int           // synthesis workers
	ClipTimeout   time.Duration // per-clip wait in the stitcher; 0 is unbounded

	Synth synth.Options
}

// Result summarises a finished run.
type Result struct {
	JobID      string
	OutputPath string
	SRTPath    string
	Cues       int
	DurationMs uint64
	Report     subtitle.Report
}

// Pipeline holds the collaborators of a run. Translator may be nil.
type Pipeline struct {
	Transcriber transcribe.Transcriber
	Translator  translate.Translator
	Synthesizer synth.Synthesizer
	Decoder     audio.Decoder // FFmpegDecoder at the job format when nil
	Logger      *logging.Logger
	TempDir     string // parent of per-job scratch dirs, os.TempDir() when empty

	prepare func(ctx context.Context, in, out string) error
	split   func(ctx context.Context, path string, chunk time.Duration, dir string, concurrency int) ([]audio.ChunkInfo, error)
	export  func(ctx context.Context, buf *audio.Buffer, path string) error
}

func (p *Pipeline) prepareAudio(ctx context.Context, in, out string) error {
	if p.prepare != nil {
		return p.prepare(ctx, in, out)
	}
	return audio.Transcode(ctx, in, out, audio.TranscriptionOptions())
}

func (p *Pipeline) splitAudio(
	ctx context.Context,
	path string,
	chunk time.Duration,
	dir string,
	concurrency int,
) ([]audio.ChunkInfo, error) {
	if p.split != nil {
		return p.split(ctx, path, chunk, dir, concurrency)
	}
	return audio.Split(ctx, path, chunk, dir, concurrency)
}

func (p *Pipeline) exportTrack(ctx context.Context, buf *audio.Buffer, path string) error {
	if p.export != nil {
		return p.export(ctx, buf, path)
	}
	return export.Export(ctx, buf, path)
}

func (j *Job) normalize() error {
	if j.Input == "" {
		return errors.New("input file is required")
	}
	if j.OutputPath == "" {
		return errors.New("output path is required")
	}
	if j.Format == (audio.Format{}) {
		j.Format = audio.DefaultFormat()
	}
	if err := j.Format.Validate(); err != nil {
		return err
	}
	if j.Concurrency <= 0 {
		j.Concurrency = translate.DefaultConcurrency
	}
	if j.Workers <= 0 {
		j.Workers = synth.DefaultWorkers
	}
	return nil
}

// Run dubs job.Input end to end. Any failure is terminal and nothing is
// written to job.OutputPath.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	if p.Transcriber == nil {
		return nil, errors.New("no transcriber configured")
	}
	if err := job.normalize(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(job.Input); err != nil {
		return nil, fmt.Errorf("input not found: %w", err)
	}

	jobID := uuid.NewString()
	logger := logging.OrNop(p.Logger).With("job", jobID)

	tempDir, err := os.MkdirTemp(p.TempDir, "dubline-"+jobID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	logger.Infow("Preparing audio for transcription", "input", job.Input)
	prepared := filepath.Join(tempDir, "source.mp3")
	if err := p.prepareAudio(ctx, job.Input, prepared); err != nil {
		return nil, fmt.Errorf("failed to prepare audio: %w", err)
	}

	tr, err := p.transcribe(ctx, prepared, tempDir, job, logger)
	if err != nil {
		return nil, err
	}

	sub := subtitle.NewCueBuilder().Build(tr.Segments)
	sub.Language = tr.Language
	sub.Format = subtitle.FormatSRT
	logger.Infow("Transcription complete",
		"segments", len(tr.Segments),
		"cues", len(sub.Entries),
		"language", tr.Language,
	)

	if job.SRTPath != "" {
		if err := subtitle.WriteFile(sub, job.SRTPath); err != nil {
			return nil, err
		}
		logger.Infow("Transcript written", "path", job.SRTPath)
	}

	return p.dub(ctx, jobID, tempDir, sub, job, logger)
}

// RunFromSubtitles dubs an existing SRT or VTT file, skipping transcription.
func (p *Pipeline) RunFromSubtitles(ctx context.Context, job Job) (*Result, error) {
	if err := job.normalize(); err != nil {
		return nil, err
	}

	sub, err := subtitle.Open(job.Input)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	logger := logging.OrNop(p.Logger).With("job", jobID)

	tempDir, err := os.MkdirTemp(p.TempDir, "dubline-"+jobID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	logger.Infow("Loaded subtitles", "input", job.Input, "cues", len(sub.Entries))
	return p.dub(ctx, jobID, tempDir, sub, job, logger)
}

func (p *Pipeline) transcribe(
	ctx context.Context,
	path, tempDir string,
	job Job,
	logger *logging.Logger,
) (*transcribe.Result, error) {
	ct, chunked := p.Transcriber.(transcribe.ConcurrentTranscriber)
	if !chunked || job.ChunkDuration <= 0 {
		logger.Infow("Transcribing audio")
		result, err := p.Transcriber.Transcribe(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
		return result, nil
	}

	chunks, err := p.splitAudio(ctx, path, job.ChunkDuration, filepath.Join(tempDir, "chunks"), job.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to split audio: %w", err)
	}
	logger.Infow("Transcribing audio",
		"chunks", len(chunks),
		"concurrency", job.Concurrency,
	)

	result, err := ct.TranscribeWithChunks(ctx, chunks, job.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	return result, nil
}

// translate, synthesize, stitch, export
func (p *Pipeline) dub(
	ctx context.Context,
	jobID, tempDir string,
	sub *subtitle.Subtitle,
	job Job,
	logger *logging.Logger,
) (*Result, error) {
	if p.Synthesizer == nil {
		return nil, errors.New("no synthesizer configured")
	}

	if p.Translator != nil {
		logger.Infow("Translating cues", "cues", len(sub.Entries))
		if err := translate.TranslateSubtitle(ctx, p.Translator, sub, job.Concurrency); err != nil {
			return nil, fmt.Errorf("translation failed: %w", err)
		}
	}

	cues := sub.Cues()
	report := subtitle.Analyze(cues)
	for _, issue := range report.Issues {
		if issue.Kind == subtitle.IssueEmpty {
			logger.Debugw("Cue timing", "issue", issue.String())
			continue
		}
		logger.Warnw("Cue timing", "issue", issue.String())
	}

	decoder := p.Decoder
	if decoder == nil {
		decoder = audio.FFmpegDecoder{Format: job.Format, TempDir: tempDir}
	}

	logger.Infow("Synthesizing clips",
		"cues", len(cues),
		"workers", job.Workers,
		"voice", job.Synth.Voice,
	)
	queue := synth.Acquire(ctx, p.Synthesizer, decoder, cues, synth.AcquireOptions{
		Workers: job.Workers,
		Format:  job.Format,
		Synth:   job.Synth,
		Logger:  logger,
	})
	defer queue.Close()

	start := time.Now()
	track, err := timeline.StitchFrom(ctx, cues, queue, job.ClipTimeout)
	if err != nil {
		return nil, fmt.Errorf("stitching failed: %w", err)
	}
	logger.Infow("Timeline stitched",
		"duration_ms", track.DurationMs(),
		"drift_ms", report.DriftMs,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if err := p.exportTrack(ctx, track, job.OutputPath); err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	logger.Infow("Track exported", "path", job.OutputPath)

	return &Result{
		JobID:      jobID,
		OutputPath: job.OutputPath,
		SRTPath:    job.SRTPath,
		Cues:       len(cues),
		DurationMs: track.DurationMs(),
		Report:     report,
	}, nil
}

// SRTPathFor is the transcript location next to the input, as `<base>.srt`.
func SRTPathFor(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".srt"
}
