package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/utils"
)

// RenderTimeline turns rendered cards into one silent video at output. Every
// card must already have its ImagePath. Returns the measured duration.
func (ve *VideoEditor) RenderTimeline(ctx context.Context, cards []Card, workDir, output string) (time.Duration, error) {
	if err := utils.EnsureDirectoryExists(workDir); err != nil {
		return 0, fmt.Errorf("failed to create work directory: %w", err)
	}

	encoder := ve.encoderSettings(ctx)
	var clips []string
	var expected time.Duration

	for i, card := range cards {
		if card.Length <= 0 {
			continue
		}
		if err := utils.RequireFile(card.ImagePath, "card image"); err != nil {
			return 0, err
		}

		clip := filepath.Join(workDir, fmt.Sprintf("clip_%02d.mp4", i+1))
		ve.Logger.WithFields(logrus.Fields{
			"segment": card.Segment,
			"start":   utils.FormatClock(card.Start),
			"length":  card.Length.String(),
		}).Info("🎬 rendering clip")

		if err := ve.renderClip(ctx, card, encoder, clip); err != nil {
			return 0, err
		}
		clips = append(clips, clip)
		expected += card.Length
	}

	if len(clips) == 0 {
		return 0, fmt.Errorf("no cards to render")
	}

	listFile := filepath.Join(workDir, "clips_list.txt")
	defer utils.CleanupTempFiles(ve.Logger, []string{listFile})
	if err := ve.concatenateClips(ctx, clips, listFile, output); err != nil {
		return 0, err
	}

	measured, err := utils.ProbeDuration(ctx, ve.Runner, output)
	if err != nil {
		return 0, err
	}
	ve.Logger.WithFields(logrus.Fields{
		"expected": expected.String(),
		"measured": measured.String(),
	}).Info("✅ timeline video ready")
	return measured, nil
}

func (ve *VideoEditor) renderClip(ctx context.Context, card Card, encoder EncoderSettings, clip string) error {
	width, height := ve.Settings.Width, ve.Settings.Height
	args := []string{
		"-y",
		"-loop", "1",
		"-i", utils.FFmpegPath(card.ImagePath),
		"-t", strconv.FormatFloat(card.Length.Seconds(), 'f', 3, 64),
		"-vf", createStaticFilter(width, height),
		"-c:v", encoder.Codec,
	}
	args = append(args, encoder.Args...)
	args = append(args,
		"-r", strconv.Itoa(ve.Settings.FPS),
		"-pix_fmt", "yuv420p",
		utils.FFmpegPath(clip),
	)

	output, err := ve.Runner.Run(ctx, "ffmpeg", args...)
	if err != nil {
		ve.Logger.WithField("output", string(output)).Error("FFmpeg clip render failed")
		return fmt.Errorf("failed to render clip for %s: %w", card.Segment, err)
	}
	return nil
}

// createStaticFilter scales and pads a still image to the frame
func createStaticFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)
}

// concatenateClips joins clips with the concat demuxer without re-encoding
func (ve *VideoEditor) concatenateClips(ctx context.Context, clips []string, listFile, output string) error {
	if err := utils.CreateConcatFile(clips, listFile); err != nil {
		return fmt.Errorf("failed to create clips list file: %w", err)
	}

	ve.Logger.Infof("Concatenating %d clips...", len(clips))
	concatOutput, err := ve.Runner.Run(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", utils.FFmpegPath(listFile),
		"-c", "copy",
		utils.FFmpegPath(output),
	)
	if err != nil {
		ve.Logger.WithField("output", string(concatOutput)).Error("FFmpeg concatenation failed")
		return fmt.Errorf("failed to concatenate clips: %w", err)
	}
	return nil
}

// CardPainter draws one card to a PNG file
type CardPainter interface {
	Render(card Card, path string) error
}

// RenderCards draws every card into dir and sets its ImagePath
func RenderCards(renderer CardPainter, cards []Card, dir string) error {
	if err := utils.EnsureDirectoryExists(dir); err != nil {
		return fmt.Errorf("failed to create card directory: %w", err)
	}
	for i := range cards {
		path := filepath.Join(dir, fmt.Sprintf("card_%02d.png", i+1))
		if err := renderer.Render(cards[i], path); err != nil {
			return fmt.Errorf("card %d (%s): %w", i+1, cards[i].Segment, err)
		}
		cards[i].ImagePath = path
	}
	return nil
}
