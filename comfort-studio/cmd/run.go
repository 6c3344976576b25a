package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/pipeline"
	"maro_automation/comfort-studio/scheduler"
)

func newRunCmd() *cobra.Command {
	var contentType, topic, privacy string
	var upload bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce one video: script, narration, render, mux and optional upload",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			today := scheduler.DefaultWeeklyPlan().For(time.Now().In(a.location()).Weekday())
			ct, err := parseType(contentType, today)
			if err != nil {
				return err
			}

			s, err := a.pipeline(cmd.Context(), pipelineOptions{upload: upload, interactive: true})
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.pipeline.Run(cmd.Context(), pipeline.Request{
				Type: ct, Topic: topic, Upload: upload, Privacy: a.privacy(privacy),
			})
			printResult(cmd.OutOrStdout(), result, err)
			return err
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "content type (default: today's type from the weekly plan)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic (random from the profile when empty)")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the finished video to YouTube")
	cmd.Flags().StringVar(&privacy, "privacy", "", "public, unlisted or private (default from YOUTUBE_PRIVACY)")
	return cmd
}

// recordScript replays an existing record instead of calling the LLM
type recordScript struct {
	record *models.ContentRecord
}

func (s recordScript) Generate(_ context.Context, ct models.ContentType, _ string) (*models.ContentRecord, error) {
	if ct != s.record.ContentType {
		return nil, fmt.Errorf("record is %s, not %s", s.record.ContentType, ct)
	}
	return s.record, nil
}

func loadRecord(path string) (*models.ContentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	record := &models.ContentRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
	}
	if err := record.RestoreTimeline(); err != nil {
		return nil, err
	}
	return record, nil
}

func newRenderCmd() *cobra.Command {
	var privacy string
	var upload bool
	cmd := &cobra.Command{
		Use:   "render <record.json>",
		Short: "Narrate, render and mux an existing script record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			record, err := loadRecord(args[0])
			if err != nil {
				return err
			}

			s, err := a.pipeline(cmd.Context(), pipelineOptions{
				scripts:     recordScript{record: record},
				upload:      upload,
				interactive: true,
			})
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.pipeline.Run(cmd.Context(), pipeline.Request{
				Type: record.ContentType, Topic: record.Topic, Upload: upload, Privacy: a.privacy(privacy),
			})
			printResult(cmd.OutOrStdout(), result, err)
			return err
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the finished video to YouTube")
	cmd.Flags().StringVar(&privacy, "privacy", "", "public, unlisted or private (default from YOUTUBE_PRIVACY)")
	return cmd
}

func printResult(out io.Writer, result *pipeline.Result, err error) {
	if result == nil {
		return
	}
	if err != nil {
		warnColor.Fprintf(out, "❌ run %s failed: %v\n", result.RunID, err)
		return
	}

	successColor.Fprintf(out, "🎉 run %s complete in %s\n", result.RunID, result.Elapsed.Round(time.Second))
	if result.Record != nil {
		fmt.Fprintf(out, "   %s %s\n", labelColor.Sprint("title:"), result.Record.Title)
		for _, warning := range result.Record.Warnings {
			warnColor.Fprintf(out, "   ⚠️  %s\n", warning)
		}
	}
	fmt.Fprintf(out, "   %s %s (%s)\n", labelColor.Sprint("video:"), result.VideoPath, result.Strategy)
	if result.VideoID != "" {
		fmt.Fprintf(out, "   %s https://youtu.be/%s\n", labelColor.Sprint("youtube:"), result.VideoID)
	}
}
