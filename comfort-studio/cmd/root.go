package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"maro_automation/comfort-studio/models"
)

var (
	profilesFile string
	outputDir    string
	verbose      bool
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	labelColor   = color.New(color.Bold)
)

// NewRootCmd returns the root command of the comfort studio CLI
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "comfort-studio",
		Short:         "maro (마음위로) comfort video studio",
		Long:          "Generates, renders and uploads the short Korean comfort videos of the maro channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles", "", "profiles YAML file (default from PROFILES_FILE)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "output directory (default from OUTPUT_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newTimelineCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())

	return rootCmd
}

// parseType accepts an empty value as "use the default"
func parseType(value string, fallback models.ContentType) (models.ContentType, error) {
	if value == "" {
		return fallback, nil
	}
	ct, err := models.ParseContentType(value)
	if err != nil {
		return "", fmt.Errorf("%w (valid: %v)", err, models.AllContentTypes)
	}
	return ct, nil
}
