package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/script"
	"maro_automation/comfort-studio/utils"
)

const (
	defaultMaxChars   = 1000
	defaultSampleRate = 24000

	// DefaultConcatTolerance absorbs mp3 frame padding in the joined track
	DefaultConcatTolerance = 500 * time.Millisecond
)

// Options configure narration assembly
type Options struct {
	Voice    string
	Speed    float64
	LeadIn   time.Duration
	Gap      time.Duration
	MaxChars int

	// ConcatTolerance is the allowed difference between the joined track
	// and lead-in + clips + gaps
	ConcatTolerance time.Duration
}

// Synthesizer turns paragraphs into a single narration track
type Synthesizer struct {
	provider Provider
	runner   utils.CommandRunner
	logger   logrus.FieldLogger
	opts     Options
}

// Clip is one synthesized chunk
type Clip struct {
	Path     string        `json:"path"`
	Text     string        `json:"text"`
	Duration time.Duration `json:"duration"`
}

// Narration is the assembled narration track
type Narration struct {
	Path     string
	Clips    []Clip
	Expected time.Duration
	Measured time.Duration
	Warnings []string
}

// Drift is Measured - Expected
func (n *Narration) Drift() time.Duration {
	return n.Measured - n.Expected
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(provider Provider, runner utils.CommandRunner, logger logrus.FieldLogger, opts Options) *Synthesizer {
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	if opts.LeadIn < 0 {
		opts.LeadIn = 0
	}
	if opts.Gap < 0 {
		opts.Gap = 0
	}
	if opts.ConcatTolerance <= 0 {
		opts.ConcatTolerance = DefaultConcatTolerance
	}
	return &Synthesizer{provider: provider, runner: runner, logger: logger, opts: opts}
}

// ExpectedLength is lead-in + Σ durations + gap × (n−1)
func ExpectedLength(leadIn, gap time.Duration, durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	total := leadIn + gap*time.Duration(len(durations)-1)
	for _, d := range durations {
		total += d
	}
	return total
}

// Narrate synthesizes every paragraph into dir and concatenates the clips
// with silence into dir/narration.mp3
func (s *Synthesizer) Narrate(ctx context.Context, paragraphs []string, dir string) (*Narration, error) {
	var chunks []string
	for _, paragraph := range paragraphs {
		chunks = append(chunks, script.SplitByCharLimit(paragraph, s.opts.MaxChars)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no narration text")
	}

	if err := utils.EnsureDirectoryExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create narration directory: %w", err)
	}

	narration := &Narration{Path: filepath.Join(dir, "narration.mp3")}
	durations := make([]time.Duration, 0, len(chunks))

	for i, chunk := range chunks {
		s.logger.WithFields(logrus.Fields{"chunk": i + 1, "of": len(chunks)}).Info("🎙️ synthesizing narration")

		audio, err := s.provider.Synthesize(ctx, Request{Text: chunk, Voice: s.opts.Voice, Speed: s.opts.Speed})
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		if len(audio) == 0 {
			return nil, fmt.Errorf("chunk %d: provider returned no audio", i+1)
		}

		clipPath := filepath.Join(dir, fmt.Sprintf("segment_%02d.mp3", i+1))
		if err := os.WriteFile(clipPath, audio, 0644); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", clipPath, err)
		}

		d, err := utils.ProbeDuration(ctx, s.runner, clipPath)
		if err != nil {
			return nil, err
		}
		durations = append(durations, d)
		narration.Clips = append(narration.Clips, Clip{Path: clipPath, Text: chunk, Duration: d})
	}

	playlist, err := s.buildPlaylist(ctx, dir, narration.Clips)
	if err != nil {
		return nil, err
	}

	listFile := filepath.Join(dir, "narration_list.txt")
	defer utils.CleanupTempFiles(s.logger, []string{listFile})
	if err := utils.CreateConcatFile(playlist, listFile); err != nil {
		return nil, fmt.Errorf("failed to create concat list: %w", err)
	}

	output, err := s.runner.Run(ctx, "ffmpeg", "-y", "-f", "concat", "-safe", "0",
		"-i", utils.FFmpegPath(listFile),
		"-c:a", "libmp3lame", "-b:a", "128k", "-ar", fmt.Sprint(defaultSampleRate), "-ac", "1",
		utils.FFmpegPath(narration.Path))
	if err != nil {
		s.logger.WithField("output", string(output)).Error("narration concat failed")
		return nil, fmt.Errorf("failed to concatenate narration: %w", err)
	}

	narration.Expected = ExpectedLength(s.opts.LeadIn, s.opts.Gap, durations)
	narration.Measured, err = utils.ProbeDuration(ctx, s.runner, narration.Path)
	if err != nil {
		return nil, err
	}

	if drift := narration.Drift(); drift > s.opts.ConcatTolerance || drift < -s.opts.ConcatTolerance {
		s.logger.WithFields(logrus.Fields{
			"expected": narration.Expected.String(),
			"measured": narration.Measured.String(),
		}).Warn("⚠️ joined narration length differs from its parts")
		narration.Warnings = append(narration.Warnings, fmt.Sprintf("narration concat is %s, expected %s from clips and silence",
			narration.Measured.Round(time.Millisecond), narration.Expected.Round(time.Millisecond)))
	}

	s.logger.WithFields(logrus.Fields{
		"clips":    len(narration.Clips),
		"expected": narration.Expected.String(),
		"measured": narration.Measured.String(),
	}).Info("✅ narration ready")
	return narration, nil
}

func (s *Synthesizer) buildPlaylist(ctx context.Context, dir string, clips []Clip) ([]string, error) {
	var playlist []string

	if s.opts.LeadIn > 0 {
		leadIn := filepath.Join(dir, "silence_lead_in.mp3")
		if err := s.silence(ctx, leadIn, s.opts.LeadIn); err != nil {
			return nil, err
		}
		playlist = append(playlist, leadIn)
	}

	gap := ""
	if s.opts.Gap > 0 && len(clips) > 1 {
		gap = filepath.Join(dir, "silence_gap.mp3")
		if err := s.silence(ctx, gap, s.opts.Gap); err != nil {
			return nil, err
		}
	}

	for i, clip := range clips {
		if i > 0 && gap != "" {
			playlist = append(playlist, gap)
		}
		playlist = append(playlist, clip.Path)
	}
	return playlist, nil
}

func (s *Synthesizer) silence(ctx context.Context, path string, d time.Duration) error {
	output, err := s.runner.Run(ctx, "ffmpeg", "-y", "-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", defaultSampleRate),
		"-t", formatSeconds(d), "-c:a", "libmp3lame", "-b:a", "128k",
		utils.FFmpegPath(path))
	if err != nil {
		s.logger.WithField("output", string(output)).Error("silence generation failed")
		return fmt.Errorf("failed to generate %s of silence: %w", d, err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", d.Seconds()), "0"), ".")
}
