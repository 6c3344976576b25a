package utils

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CommandRunner runs an external program and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// FFmpegPath converts a path to forward slashes for FFmpeg
func FFmpegPath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// ProbeDuration returns the duration of a media file using ffprobe
func ProbeDuration(ctx context.Context, runner CommandRunner, filePath string) (time.Duration, error) {
	output, err := runner.Run(ctx, "ffprobe", "-v", "quiet", "-show_entries",
		"format=duration", "-of", "csv=p=0", FFmpegPath(filePath))
	if err != nil {
		return 0, fmt.Errorf("failed to get media duration of %s: %w", filePath, err)
	}

	durationStr := strings.TrimSpace(string(output))
	seconds, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond), nil
}

// CreateConcatFile writes a list file for the FFmpeg concat demuxer
func CreateConcatFile(files []string, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, f := range files {
		absPath, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", f, err)
		}
		escapedPath := strings.ReplaceAll(FFmpegPath(absPath), "'", "'\\''")
		if _, err := fmt.Fprintf(file, "file '%s'\n", escapedPath); err != nil {
			return err
		}
	}

	return nil
}

// ValidateFFmpegInstalled checks if FFmpeg and FFprobe are installed
func ValidateFFmpegInstalled() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH. Please install FFmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return fmt.Errorf("ffprobe not found in PATH. Please install FFmpeg")
	}
	return nil
}

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename replaces characters that are invalid in file names and
// turns whitespace into underscores. Hangul is kept as is.
func SanitizeFilename(filename string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(filename, "_")
	sanitized = strings.Join(strings.Fields(sanitized), "_")
	sanitized = strings.Trim(sanitized, " ._")

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// DateDir returns base/YYYYMMDD for t
func DateDir(base string, t time.Time) string {
	return filepath.Join(base, t.Format("20060102"))
}

// EnsureDirectoryExists creates a directory if it doesn't exist
func EnsureDirectoryExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, 0755)
	}
	return nil
}

// RequireFile fails when an artifact from a previous stage is missing or empty
func RequireFile(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s missing at %s: %w", what, path, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("%s at %s is empty", what, path)
	}
	return nil
}

// CleanupTempFiles removes temporary files created during processing
func CleanupTempFiles(logger logrus.FieldLogger, files []string) {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			logger.WithError(err).Warnf("failed to remove temp file %s", file)
		}
	}
}

// FileExists checks if a file exists
func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// FormatClock renders d as m:ss
func FormatClock(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
