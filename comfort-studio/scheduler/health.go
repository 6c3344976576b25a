package scheduler

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/config"
	"maro_automation/comfort-studio/utils"
)

// SystemCheck builds the midnight health check. Missing FFmpeg or an
// unwritable output directory fail the check; missing credentials only warn.
func SystemCheck(cfg *config.Config, ffmpeg func() error, logger logrus.FieldLogger) HealthFunc {
	if ffmpeg == nil {
		ffmpeg = utils.ValidateFFmpegInstalled
	}
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ffmpeg(); err != nil {
			return err
		}
		if err := utils.EnsureDirectoryExists(cfg.OutputDir); err != nil {
			return fmt.Errorf("output directory %s: %w", cfg.OutputDir, err)
		}
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("⚠️ OPENAI_API_KEY is not set")
		}
		if !utils.FileExists(cfg.ClientSecretsFile) {
			logger.WithField("file", cfg.ClientSecretsFile).Warn("⚠️ YouTube client secrets file is missing")
		}
		return nil
	}
}
