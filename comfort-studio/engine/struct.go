package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/utils"
)

// CardKind selects the card layout
type CardKind int

const (
	IntroCard CardKind = iota
	BodyCard
	OutroCard
)

// Card is one still frame shown for one stretch of the timeline
type Card struct {
	Segment   string
	Kind      CardKind
	Heading   string
	Text      string
	Footer    string
	Start     time.Duration
	Length    time.Duration
	ImagePath string
}

// EncoderSettings is the video codec and its options
type EncoderSettings struct {
	Codec string
	Args  []string
}

// VideoEditor renders cards into a silent video
type VideoEditor struct {
	Settings  models.Settings
	Runner    utils.CommandRunner
	Logger    logrus.FieldLogger
	UseGPU    bool
	GPUDevice string

	encoderOnce sync.Once
	encoder     EncoderSettings
}

// NewVideoEditor creates a video editor for the given video settings
func NewVideoEditor(settings models.Settings, runner utils.CommandRunner, logger logrus.FieldLogger) *VideoEditor {
	gpuDevice := "0"
	if settings.GPUDevice != "" {
		gpuDevice = settings.GPUDevice
	}
	return &VideoEditor{
		Settings:  settings,
		Runner:    runner,
		Logger:    logger,
		UseGPU:    settings.UseGPU,
		GPUDevice: gpuDevice,
	}
}
