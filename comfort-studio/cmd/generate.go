package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/timeline"
	"maro_automation/comfort-studio/utils"
)

func newGenerateCmd() *cobra.Command {
	var contentType, topic string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a script and write its record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ct, err := parseType(contentType, models.DailyComfort)
			if err != nil {
				return err
			}
			registry, err := a.scripts()
			if err != nil {
				return err
			}

			record, err := registry.Generate(cmd.Context(), ct, topic)
			if err != nil {
				return err
			}
			paths, err := a.writer().Write(record)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			successColor.Fprintf(out, "✅ %s\n", record.Title)
			fmt.Fprintf(out, "   %s %d\n", labelColor.Sprint("paragraphs:"), len(record.Paragraphs))
			fmt.Fprintf(out, "   %s %s\n", labelColor.Sprint("json:"), paths.JSON)
			fmt.Fprintf(out, "   %s %s\n", labelColor.Sprint("markdown:"), paths.Markdown)
			if record.UsedFallback {
				warnColor.Fprintln(out, "⚠️  LLM unavailable, fallback script used")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "content type (default daily_comfort)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic (random from the profile when empty)")
	return cmd
}

func newTimelineCmd() *cobra.Command {
	var contentType string
	var total float64
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print the segment timeline of a content type",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			types := models.AllContentTypes
			if contentType != "" {
				ct, err := parseType(contentType, "")
				if err != nil {
					return err
				}
				types = []models.ContentType{ct}
			}

			out := cmd.OutOrStdout()
			for _, ct := range types {
				profile, err := a.studio.Profile(ct)
				if err != nil {
					return err
				}
				specs, err := profile.Specs()
				if err != nil {
					return err
				}
				length := profile.Duration()
				if total > 0 {
					length = time.Duration(total * float64(time.Second))
				}
				tl, err := timeline.Build(length, specs)
				if err != nil {
					return fmt.Errorf("%s: %w", ct, err)
				}

				infoColor.Fprintf(out, "🕒 %s (%s) %s\n", ct.Label(), ct, utils.FormatClock(tl.Total))
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SEGMENT\tSTART\tEND\tLENGTH")
				for _, seg := range tl.Segments {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", seg.Name, utils.FormatClock(seg.Start), utils.FormatClock(seg.End()), seg.Length)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "content type (all when empty)")
	cmd.Flags().Float64Var(&total, "total", 0, "override the total length in seconds")
	return cmd
}
