package models

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"maro_automation/comfort-studio/timeline"
)

// SegmentConfig is one timeline part of a profile. Seconds > 0 makes it a
// fixed segment, otherwise it shares the remaining time by Weight.
type SegmentConfig struct {
	Name    string  `yaml:"name" json:"name"`
	Seconds float64 `yaml:"seconds,omitempty" json:"seconds,omitempty"`
	Weight  float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// Profile holds generation and timing settings for one content type
type Profile struct {
	DurationSeconds float64         `yaml:"duration_seconds" json:"duration_seconds"`
	Segments        []SegmentConfig `yaml:"segments" json:"segments"`
	MaxTokens       int             `yaml:"max_tokens" json:"max_tokens"`
	Temperature     float64         `yaml:"temperature" json:"temperature"`
	Tags            []string        `yaml:"tags" json:"tags"`
	Topics          []string        `yaml:"topics" json:"topics"`
}

// RGB is a color written as [r, g, b] in the profiles file
type RGB [3]uint8

// Settings contains global video settings
type Settings struct {
	Width           int     `yaml:"width,omitempty"`
	Height          int     `yaml:"height,omitempty"`
	FPS             int     `yaml:"fps,omitempty"`
	VoiceVolume     float64 `yaml:"voice_volume,omitempty"`
	BGMVolume       float64 `yaml:"bgm_volume,omitempty"`
	ToneFrequency   float64 `yaml:"tone_frequency,omitempty"`
	BackgroundMusic string  `yaml:"background_music,omitempty"`
	BackgroundTop   *RGB    `yaml:"background_top,omitempty"`
	BackgroundBot   *RGB    `yaml:"background_bottom,omitempty"`
	TextColor       *RGB    `yaml:"text_color,omitempty"`
	TitleFontSize   float64 `yaml:"title_font_size,omitempty"`
	BodyFontSize    float64 `yaml:"body_font_size,omitempty"`
	UseGPU          bool    `yaml:"use_gpu"`
	GPUDevice       string  `yaml:"gpu_device,omitempty"`
}

// StudioConfig is the whole profiles file
type StudioConfig struct {
	Channel  ChannelInfo              `yaml:"channel"`
	Video    Settings                 `yaml:"video"`
	Profiles map[ContentType]*Profile `yaml:"profiles"`
}

// ChannelInfo is the branding shown on cards and in descriptions
type ChannelInfo struct {
	Name    string   `yaml:"name"`
	Slogan  string   `yaml:"slogan"`
	Tags    []string `yaml:"tags"`
	Outro   string   `yaml:"outro"`
	Hashtag string   `yaml:"hashtags"`
}

// Example profiles.yaml:
/*
video:
  fps: 24
  background_music: ./assets/piano.mp3
profiles:
  daily_comfort:
    duration_seconds: 180
    segments:
      - {name: intro, seconds: 15}
      - {name: main, weight: 1}
      - {name: outro, seconds: 10}
*/

// LoadConfig reads the profiles file. A missing file yields the defaults;
// values present in the file override the defaults per field.
func LoadConfig(path string) (*StudioConfig, error) {
	config := &StudioConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read profiles file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse profiles file %s: %w", path, err)
			}
		}
	}

	config.applyDefaults()

	for ct, profile := range config.Profiles {
		if _, err := ParseContentType(string(ct)); err != nil {
			return nil, fmt.Errorf("profiles file: %w", err)
		}
		if _, err := profile.Timeline(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", ct, err)
		}
	}

	return config, nil
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *StudioConfig {
	config := &StudioConfig{}
	config.applyDefaults()
	return config
}

func (c *StudioConfig) applyDefaults() {
	if c.Channel.Name == "" {
		c.Channel.Name = "maro (마음위로)"
	}
	if c.Channel.Slogan == "" {
		c.Channel.Slogan = "하루 3분, 당신은 혼자가 아닙니다"
	}
	if c.Channel.Outro == "" {
		c.Channel.Outro = "오늘 하루도 잘 살아내셨습니다. 내일도 함께 걸어가겠습니다."
	}
	if c.Channel.Hashtag == "" {
		c.Channel.Hashtag = "#maro #마음위로 #위로 #힐링 #일상위로"
	}
	if len(c.Channel.Tags) == 0 {
		c.Channel.Tags = []string{"maro", "마음위로"}
	}

	if c.Video.Width <= 0 {
		c.Video.Width = 1920
	}
	if c.Video.Height <= 0 {
		c.Video.Height = 1080
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = 24
	}
	if c.Video.VoiceVolume <= 0 {
		c.Video.VoiceVolume = 1.0
	}
	if c.Video.BGMVolume <= 0 {
		c.Video.BGMVolume = 0.1
	}
	if c.Video.ToneFrequency <= 0 {
		c.Video.ToneFrequency = 174
	}
	if c.Video.BackgroundTop == nil {
		c.Video.BackgroundTop = &RGB{255, 248, 240}
	}
	if c.Video.BackgroundBot == nil {
		c.Video.BackgroundBot = &RGB{240, 248, 255}
	}
	if c.Video.TextColor == nil {
		c.Video.TextColor = &RGB{44, 62, 80}
	}
	if c.Video.TitleFontSize <= 0 {
		c.Video.TitleFontSize = 72
	}
	if c.Video.BodyFontSize <= 0 {
		c.Video.BodyFontSize = 52
	}
	if c.Video.GPUDevice == "" {
		c.Video.GPUDevice = "0"
	}

	if c.Profiles == nil {
		c.Profiles = make(map[ContentType]*Profile)
	}
	for _, ct := range AllContentTypes {
		def := defaultProfile(ct)
		profile, ok := c.Profiles[ct]
		if !ok || profile == nil {
			c.Profiles[ct] = def
			continue
		}
		profile.fillFrom(def)
	}
}

func (p *Profile) fillFrom(def *Profile) {
	if p.DurationSeconds <= 0 {
		p.DurationSeconds = def.DurationSeconds
	}
	if len(p.Segments) == 0 {
		p.Segments = def.Segments
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.Temperature <= 0 {
		p.Temperature = def.Temperature
	}
	if len(p.Tags) == 0 {
		p.Tags = def.Tags
	}
	if len(p.Topics) == 0 {
		p.Topics = def.Topics
	}
}

// Profile returns the profile for ct
func (c *StudioConfig) Profile(ct ContentType) (*Profile, error) {
	profile, ok := c.Profiles[ct]
	if !ok || profile == nil {
		return nil, fmt.Errorf("no profile for content type %q", ct)
	}
	return profile, nil
}

// Specs converts the configured segments to segmenter descriptors
func (p *Profile) Specs() ([]timeline.Spec, error) {
	specs := make([]timeline.Spec, 0, len(p.Segments))
	for _, seg := range p.Segments {
		switch {
		case seg.Seconds < 0:
			return nil, fmt.Errorf("segment %q: negative seconds", seg.Name)
		case seg.Seconds > 0 && seg.Weight != 0:
			return nil, fmt.Errorf("segment %q: set either seconds or weight, not both", seg.Name)
		case seg.Seconds > maxSeconds || math.IsNaN(seg.Seconds):
			return nil, fmt.Errorf("segment %q: seconds out of range", seg.Name)
		case seg.Seconds > 0:
			specs = append(specs, timeline.Fixed(seg.Name, secondsToDuration(seg.Seconds)))
		default:
			specs = append(specs, timeline.Weighted(seg.Name, seg.Weight))
		}
	}
	return specs, nil
}

// Timeline resolves the profile's segments against its duration
func (p *Profile) Timeline() (timeline.Timeline, error) {
	specs, err := p.Specs()
	if err != nil {
		return timeline.Timeline{}, err
	}
	if p.DurationSeconds > maxSeconds || math.IsNaN(p.DurationSeconds) {
		return timeline.Timeline{}, fmt.Errorf("duration_seconds out of range")
	}
	return timeline.Build(secondsToDuration(p.DurationSeconds), specs)
}

// Duration returns the target duration
func (p *Profile) Duration() time.Duration {
	return secondsToDuration(p.DurationSeconds)
}

// maxSeconds is the longest length a time.Duration can hold
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
