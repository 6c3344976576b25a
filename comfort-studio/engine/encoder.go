package engine

import (
	"context"
	"strings"
)

// encoderSettings picks NVENC when GPU encoding is enabled and works,
// libx264 otherwise. The probe runs once per editor.
func (ve *VideoEditor) encoderSettings(ctx context.Context) EncoderSettings {
	ve.encoderOnce.Do(func() {
		if ve.UseGPU && ve.testNVENCEncoder(ctx) {
			ve.Logger.WithField("gpu", ve.GPUDevice).Info("🚀 using NVENC encoding")
			ve.encoder = EncoderSettings{
				Codec: "h264_nvenc",
				Args:  []string{"-preset", "fast", "-gpu", ve.GPUDevice, "-rc", "vbr", "-cq", "23"},
			}
			return
		}
		if ve.UseGPU {
			ve.Logger.Warn("⚠️ NVENC not usable, falling back to CPU encoding")
		}
		ve.encoder = cpuEncoderSettings()
	})
	return ve.encoder
}

func cpuEncoderSettings() EncoderSettings {
	return EncoderSettings{
		Codec: "libx264",
		Args:  []string{"-preset", "medium", "-crf", "21", "-tune", "stillimage"},
	}
}

func (ve *VideoEditor) testNVENCEncoder(ctx context.Context) bool {
	output, err := ve.Runner.Run(ctx, "ffmpeg", "-hide_banner", "-encoders")
	if err != nil || !strings.Contains(string(output), "h264_nvenc") {
		ve.Logger.Debug("h264_nvenc encoder not found in FFmpeg build")
		return false
	}

	for _, preset := range []string{"fast", "default"} {
		_, err := ve.Runner.Run(ctx, "ffmpeg",
			"-hide_banner", "-loglevel", "error",
			"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=1",
			"-t", "1",
			"-c:v", "h264_nvenc",
			"-preset", preset,
			"-f", "null", "-")
		if err == nil {
			return true
		}
		ve.Logger.WithError(err).WithField("preset", preset).Debug("NVENC test encode failed")
	}
	return false
}
