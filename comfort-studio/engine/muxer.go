package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/utils"
)

// MuxInput describes one audio/video mux
type MuxInput struct {
	Video     string
	Narration string
	Output    string
	// NarrationStart is where the narration begins in the video
	NarrationStart time.Duration
	Total          time.Duration

	BackgroundMusic string
	VoiceVolume     float64
	BGMVolume       float64
	ToneFrequency   float64
}

// MuxStrategy builds the FFmpeg arguments for one way of combining the
// streams
type MuxStrategy struct {
	Name string
	Args func(in MuxInput) []string
}

// DefaultMuxOrder is the order strategies are tried in
var DefaultMuxOrder = []string{"amix", "overlay", "concat", "direct"}

var muxStrategies = map[string]func(in MuxInput) []string{
	"amix":    amixArgs,
	"overlay": overlayArgs,
	"concat":  concatArgs,
	"direct":  directArgs,
}

// Muxer tries each strategy in order until one produces the output
type Muxer struct {
	runner     utils.CommandRunner
	logger     logrus.FieldLogger
	strategies []MuxStrategy
}

// NewMuxer creates a muxer with the named strategies, or DefaultMuxOrder
// when names is empty
func NewMuxer(runner utils.CommandRunner, logger logrus.FieldLogger, names []string) (*Muxer, error) {
	if len(names) == 0 {
		names = DefaultMuxOrder
	}
	m := &Muxer{runner: runner, logger: logger}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		args, ok := muxStrategies[name]
		if !ok {
			return nil, fmt.Errorf("unknown mux strategy %q", name)
		}
		m.strategies = append(m.strategies, MuxStrategy{Name: name, Args: args})
	}
	return m, nil
}

// Strategies returns the configured strategy names in order
func (m *Muxer) Strategies() []string {
	names := make([]string, len(m.strategies))
	for i, s := range m.strategies {
		names[i] = s.Name
	}
	return names
}

// Mux writes in.Output and returns the name of the strategy that worked
func (m *Muxer) Mux(ctx context.Context, in MuxInput) (string, error) {
	if err := utils.RequireFile(in.Video, "video"); err != nil {
		return "", err
	}
	if err := utils.RequireFile(in.Narration, "narration"); err != nil {
		return "", err
	}
	if in.VoiceVolume <= 0 {
		in.VoiceVolume = 1.0
	}
	if in.BGMVolume <= 0 {
		in.BGMVolume = 0.1
	}
	if in.ToneFrequency <= 0 {
		in.ToneFrequency = 174
	}

	var errs []error
	for _, strategy := range m.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		logger := m.logger.WithField("strategy", strategy.Name)
		logger.Info("🔊 muxing audio and video")
		if err := os.Remove(in.Output); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to clear previous output: %w", err)
		}

		output, err := m.runner.Run(ctx, "ffmpeg", strategy.Args(in)...)
		if err == nil {
			err = utils.RequireFile(in.Output, "muxed video")
		}
		if err == nil {
			logger.Info("✅ mux succeeded")
			return strategy.Name, nil
		}

		logger.WithError(err).WithField("output", string(output)).Warn("mux strategy failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", strategy.Name, err))
	}
	return "", fmt.Errorf("all mux strategies failed: %w", errors.Join(errs...))
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func volume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func delayFilter(in MuxInput) string {
	ms := in.NarrationStart.Milliseconds()
	return fmt.Sprintf("adelay=%d|%d", ms, ms)
}

func outputArgs(in MuxInput) []string {
	return []string{
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy", "-c:a", "aac", "-b:a", "128k",
		"-t", seconds(in.Total),
		utils.FFmpegPath(in.Output),
	}
}

// amixArgs mixes the delayed narration with a background bed: the looped
// music file if set, a soft generated tone otherwise
func amixArgs(in MuxInput) []string {
	args := []string{"-y", "-i", utils.FFmpegPath(in.Video), "-i", utils.FFmpegPath(in.Narration)}

	bedFilter := fmt.Sprintf("[2:a]volume=%s[bg]", volume(in.BGMVolume))
	if in.BackgroundMusic != "" {
		args = append(args, "-stream_loop", "-1", "-i", utils.FFmpegPath(in.BackgroundMusic))
	} else {
		args = append(args, "-f", "lavfi", "-i",
			fmt.Sprintf("sine=frequency=%s:duration=%s", volume(in.ToneFrequency), seconds(in.Total)))
		bedFilter = fmt.Sprintf("[2:a]volume=%s,highpass=f=100,lowpass=f=800[bg]", volume(in.BGMVolume))
	}

	filter := fmt.Sprintf("[1:a]%s,volume=%s[voice];%s;[voice][bg]amix=inputs=2:duration=longest:dropout_transition=0[aout]",
		delayFilter(in), volume(in.VoiceVolume), bedFilter)

	args = append(args, "-filter_complex", filter)
	return append(args, outputArgs(in)...)
}

// overlayArgs places the delayed narration on the video without a bed
func overlayArgs(in MuxInput) []string {
	args := []string{"-y", "-i", utils.FFmpegPath(in.Video), "-i", utils.FFmpegPath(in.Narration),
		"-filter_complex", fmt.Sprintf("[1:a]%s,volume=%s,apad[aout]", delayFilter(in), volume(in.VoiceVolume)),
	}
	return append(args, outputArgs(in)...)
}

// concatArgs joins silence, narration and trailing silence
func concatArgs(in MuxInput) []string {
	silence := "anullsrc=r=24000:cl=mono"
	args := []string{"-y", "-i", utils.FFmpegPath(in.Video)}

	var labels []string
	next := 1
	if in.NarrationStart > 0 {
		args = append(args, "-f", "lavfi", "-t", seconds(in.NarrationStart), "-i", silence)
		labels = append(labels, fmt.Sprintf("[%d:a]", next))
		next++
	}
	args = append(args, "-i", utils.FFmpegPath(in.Narration))
	labels = append(labels, fmt.Sprintf("[%d:a]", next))
	next++
	args = append(args, "-f", "lavfi", "-t", seconds(in.Total), "-i", silence)
	labels = append(labels, fmt.Sprintf("[%d:a]", next))

	filter := fmt.Sprintf("%sconcat=n=%d:v=0:a=1[aout]", strings.Join(labels, ""), len(labels))
	args = append(args, "-filter_complex", filter)
	return append(args, outputArgs(in)...)
}

// directArgs copies the video and encodes the narration as is
func directArgs(in MuxInput) []string {
	return []string{
		"-y",
		"-i", utils.FFmpegPath(in.Video),
		"-i", utils.FFmpegPath(in.Narration),
		"-c:v", "copy", "-c:a", "aac", "-b:a", "128k",
		"-shortest",
		utils.FFmpegPath(in.Output),
	}
}
