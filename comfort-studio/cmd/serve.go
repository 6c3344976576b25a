package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"maro_automation/comfort-studio/scheduler"
	"maro_automation/comfort-studio/server"
)

func newScheduleCmd() *cobra.Command {
	var upload bool
	var privacy string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the weekly plan: 09:00 regular, 15:00 backup, 00:00 health check",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st, err := a.pipeline(cmd.Context(), pipelineOptions{upload: upload})
			if err != nil {
				return err
			}
			defer st.close()

			s := scheduler.New(st.pipeline, scheduler.Options{
				Location: a.location(),
				Upload:   upload,
				Privacy:  a.privacy(privacy),
				Health:   scheduler.SystemCheck(a.env, nil, a.logger),
				Logger:   a.logger,
			})
			infoColor.Fprintf(cmd.OutOrStdout(), "📅 scheduler running in %s, Ctrl+C to stop\n", a.location())
			if err := s.Start(cmd.Context()); err != nil && !errors.Is(err, cmd.Context().Err()) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", true, "upload scheduled videos to YouTube")
	cmd.Flags().StringVar(&privacy, "privacy", "", "public, unlisted or private (default from YOUTUBE_PRIVACY)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port string
	var upload bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if port == "" {
				port = a.env.Port
			}

			runs := server.NewRegistry()
			st, err := a.pipeline(cmd.Context(), pipelineOptions{upload: upload, onStage: runs.SetStage})
			if err != nil {
				return err
			}
			defer st.close()

			srv := server.New(cmd.Context(), st.pipeline, runs, a.records(st.history), a.studio, a.logger)
			infoColor.Fprintf(cmd.OutOrStdout(), "🎬 maro control API on :%s\n", port)
			return srv.ListenAndServe(cmd.Context(), fmt.Sprintf(":%s", port))
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default from PORT)")
	cmd.Flags().BoolVar(&upload, "upload", false, "allow runs to upload to YouTube (needs a cached token)")
	return cmd
}

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize the YouTube channel and cache the OAuth token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			auth, err := a.authenticator()
			if err != nil {
				return err
			}
			if _, err := auth.Authorize(cmd.Context()); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "✅ token saved to %s\n", a.env.TokenFile)
			return nil
		},
	}
}
