package models

import (
	"fmt"
	"strings"
	"time"

	"maro_automation/comfort-studio/timeline"
)

// ContentType identifies one of the channel's video formats
type ContentType string

const (
	DailyComfort     ContentType = "daily_comfort"
	HealingSound     ContentType = "healing_sound"
	OvercomeStory    ContentType = "overcome_story"
	CustomComfort    ContentType = "custom_comfort"
	OneLineChallenge ContentType = "one_line_challenge"
)

// AllContentTypes lists every content type in a stable order
var AllContentTypes = []ContentType{DailyComfort, HealingSound, OvercomeStory, CustomComfort, OneLineChallenge}

// ParseContentType validates a content type string
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range AllContentTypes {
		if ct == known {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// Label returns the Korean display name
func (c ContentType) Label() string {
	switch c {
	case DailyComfort:
		return "오늘의 위로"
	case HealingSound:
		return "힐링 사운드"
	case OvercomeStory:
		return "극복 스토리"
	case CustomComfort:
		return "맞춤형 위로"
	case OneLineChallenge:
		return "한 줄 위로 챌린지"
	default:
		return string(c)
	}
}

// UploadFrequency is the label used for the type's playlist
func (c ContentType) UploadFrequency() string {
	switch c {
	case DailyComfort:
		return "매일"
	case HealingSound:
		return "주 2회 (화,토)"
	case OvercomeStory:
		return "주 1회 (수)"
	case CustomComfort:
		return "주 1회 (금)"
	case OneLineChallenge:
		return "주 1회 (일)"
	default:
		return string(c)
	}
}

// SegmentView is the seconds-based form of a timeline segment used in
// records and API responses
type SegmentView struct {
	Name          string  `json:"name" bson:"name"`
	StartSeconds  float64 `json:"start_seconds" bson:"start_seconds"`
	LengthSeconds float64 `json:"length_seconds" bson:"length_seconds"`
}

// ContentRecord is the script plus metadata for one video
type ContentRecord struct {
	ID                    string            `json:"id" bson:"_id"`
	ContentType           ContentType       `json:"content_type" bson:"content_type"`
	Topic                 string            `json:"topic" bson:"topic"`
	Title                 string            `json:"title" bson:"title"`
	BodyText              string            `json:"body_text" bson:"body_text"`
	Paragraphs            []string          `json:"paragraphs" bson:"paragraphs"`
	DurationTargetSeconds float64           `json:"duration_target_seconds" bson:"duration_target_seconds"`
	Timeline              timeline.Timeline `json:"-" bson:"-"`
	SegmentTimeline       []SegmentView     `json:"segment_timeline" bson:"segment_timeline"`
	Tags                  []string          `json:"tags" bson:"tags"`
	UsedFallback          bool              `json:"used_fallback" bson:"used_fallback"`
	Warnings              []string          `json:"warnings,omitempty" bson:"warnings,omitempty"`
	CreatedAt             time.Time         `json:"created_at" bson:"created_at"`

	NarrationSeconds float64 `json:"narration_seconds,omitempty" bson:"narration_seconds,omitempty"`
	AudioPath        string  `json:"audio_path,omitempty" bson:"audio_path,omitempty"`
	VideoPath        string  `json:"video_path,omitempty" bson:"video_path,omitempty"`
	ThumbnailPath    string  `json:"thumbnail_path,omitempty" bson:"thumbnail_path,omitempty"`
	VideoID          string  `json:"video_id,omitempty" bson:"video_id,omitempty"`
}

// SetTimeline stores tl and refreshes the seconds-based view of it
func (r *ContentRecord) SetTimeline(tl timeline.Timeline) {
	r.Timeline = tl
	r.DurationTargetSeconds = tl.Total.Seconds()
	r.SegmentTimeline = make([]SegmentView, len(tl.Segments))
	for i, seg := range tl.Segments {
		r.SegmentTimeline[i] = SegmentView{
			Name:          seg.Name,
			StartSeconds:  seg.Start.Seconds(),
			LengthSeconds: seg.Length.Seconds(),
		}
	}
}

// RestoreTimeline rebuilds Timeline from SegmentTimeline, e.g. after the
// record was read back from JSON
func (r *ContentRecord) RestoreTimeline() error {
	tl := timeline.Timeline{Total: secondsToDuration(r.DurationTargetSeconds)}
	for _, view := range r.SegmentTimeline {
		tl.Segments = append(tl.Segments, timeline.Segment{
			Name:   view.Name,
			Start:  secondsToDuration(view.StartSeconds),
			Length: secondsToDuration(view.LengthSeconds),
		})
	}
	if err := tl.Validate(); err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	r.Timeline = tl
	return nil
}

// AddWarning appends a warning message to the record
func (r *ContentRecord) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
