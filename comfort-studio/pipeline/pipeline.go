package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/engine"
	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/notify"
	"maro_automation/comfort-studio/speech"
	"maro_automation/comfort-studio/store"
	"maro_automation/comfort-studio/timeline"
	"maro_automation/comfort-studio/utils"
	"maro_automation/comfort-studio/youtube"
)

// Stage names reported through OnStage and logs
const (
	StageScript    = "script"
	StageNarration = "narration"
	StageCards     = "cards"
	StageVideo     = "video"
	StageThumbnail = "thumbnail"
	StageMux       = "mux"
	StageUpload    = "upload"
	StageDone      = "done"
)

// NarrationSegment is the timeline part the narration is measured against
const NarrationSegment = "main"

// ScriptWriter produces the record for a content type
type ScriptWriter interface {
	Generate(ctx context.Context, ct models.ContentType, topic string) (*models.ContentRecord, error)
}

// Narrator builds the narration track from paragraphs
type Narrator interface {
	Narrate(ctx context.Context, paragraphs []string, dir string) (*speech.Narration, error)
}

// TimelineRenderer turns rendered cards into a silent video
type TimelineRenderer interface {
	RenderTimeline(ctx context.Context, cards []engine.Card, workDir, output string) (time.Duration, error)
}

// ThumbnailPainter draws the upload thumbnail
type ThumbnailPainter interface {
	Render(record *models.ContentRecord, path string) error
}

// AudioMuxer combines the silent video and the narration
type AudioMuxer interface {
	Mux(ctx context.Context, in engine.MuxInput) (string, error)
}

// Publisher uploads finished videos
type Publisher interface {
	Upload(ctx context.Context, path string, meta youtube.Metadata, progress youtube.ProgressFunc) (string, error)
	EnsurePlaylist(ctx context.Context, title, description, privacy string) (string, error)
	AddToPlaylist(ctx context.Context, playlistID, videoID string) error
}

// Request is one production run
type Request struct {
	Type    models.ContentType `json:"content_type"`
	Topic   string             `json:"topic,omitempty"`
	Upload  bool               `json:"upload"`
	Privacy string             `json:"privacy,omitempty"`
}

// Result is what a run produced
type Result struct {
	RunID     string                `json:"run_id"`
	Record    *models.ContentRecord `json:"record,omitempty"`
	Files     store.Paths           `json:"files"`
	VideoPath string                `json:"video_path,omitempty"`
	VideoID   string                `json:"video_id,omitempty"`
	Strategy  string                `json:"mux_strategy,omitempty"`
	Elapsed   time.Duration         `json:"elapsed"`
}

// Stages are the collaborators of a run. Publisher, History and Notifier
// are optional.
type Stages struct {
	Scripts    ScriptWriter
	Narrator   Narrator
	Cards      engine.CardPainter
	Video      TimelineRenderer
	Thumbnails ThumbnailPainter
	Muxer      AudioMuxer
	Publisher  Publisher
	Writer     *store.FileWriter
	History    store.Repository
	Notifier   notify.Notifier
}

// Options tune a pipeline
type Options struct {
	Config     *models.StudioConfig
	Tolerance  time.Duration
	CategoryID string
	Logger     logrus.FieldLogger
	NewID      func() string
	Now        func() time.Time
	// OnStage is called when a run enters a stage
	OnStage func(runID, stage string)
}

// Pipeline runs script → narration → video → mux → upload, one stage at a time
type Pipeline struct {
	stages Stages
	opts   Options
}

// New checks the required stages and fills option defaults
func New(stages Stages, opts Options) (*Pipeline, error) {
	switch {
	case stages.Scripts == nil:
		return nil, fmt.Errorf("pipeline needs a script writer")
	case stages.Narrator == nil:
		return nil, fmt.Errorf("pipeline needs a narrator")
	case stages.Cards == nil || stages.Video == nil:
		return nil, fmt.Errorf("pipeline needs a card painter and a timeline renderer")
	case stages.Muxer == nil:
		return nil, fmt.Errorf("pipeline needs a muxer")
	case stages.Writer == nil:
		return nil, fmt.Errorf("pipeline needs a record writer")
	}
	if opts.Config == nil {
		opts.Config = models.DefaultConfig()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = timeline.DefaultTolerance
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{stages: stages, opts: opts}, nil
}

// run carries the state of one Run call
type run struct {
	id      string
	req     Request
	logger  logrus.FieldLogger
	started time.Time
	record  *models.ContentRecord
	result  *Result
}

// Run executes every stage in order and stops at the first failure. The
// record is written after the script stage and again at the end.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	return p.RunWithID(ctx, p.opts.NewID(), req)
}

// RunWithID is Run with a caller-chosen run ID
func (p *Pipeline) RunWithID(ctx context.Context, runID string, req Request) (*Result, error) {
	r := &run{
		id:      runID,
		req:     req,
		started: p.opts.Now(),
		logger: p.opts.Logger.WithFields(logrus.Fields{
			"run_id":       runID,
			"content_type": req.Type,
		}),
		result: &Result{RunID: runID},
	}
	r.logger.WithField("topic", req.Topic).Info("🚀 starting production run")

	err := p.execute(ctx, r)
	r.result.Record = r.record
	r.result.Elapsed = p.opts.Now().Sub(r.started)
	p.finish(ctx, r, err)
	if err != nil {
		return r.result, err
	}
	return r.result, nil
}

func (p *Pipeline) stage(r *run, name string) logrus.FieldLogger {
	if p.opts.OnStage != nil {
		p.opts.OnStage(r.id, name)
	}
	logger := r.logger.WithField("stage", name)
	logger.Info("▶️ stage started")
	return logger
}

func (p *Pipeline) execute(ctx context.Context, r *run) error {
	cfg := p.opts.Config

	p.stage(r, StageScript)
	record, err := p.stages.Scripts.Generate(ctx, r.req.Type, r.req.Topic)
	if err != nil {
		return fmt.Errorf("script generation failed: %w", err)
	}
	record.ID = r.id
	r.record = record
	if len(record.Paragraphs) == 0 {
		return fmt.Errorf("script for %s has no paragraphs", record.ContentType)
	}
	files, err := p.stages.Writer.Write(record)
	if err != nil {
		return err
	}
	r.result.Files = files
	workDir := p.stages.Writer.WorkDir(record)

	logger := p.stage(r, StageNarration)
	narration, err := p.stages.Narrator.Narrate(ctx, record.Paragraphs, filepath.Join(workDir, "audio"))
	if err != nil {
		return fmt.Errorf("narration failed: %w", err)
	}
	if err := utils.RequireFile(narration.Path, "narration"); err != nil {
		return err
	}
	record.AudioPath = narration.Path
	record.NarrationSeconds = narration.Measured.Seconds()
	for _, warning := range narration.Warnings {
		record.AddWarning("%s", warning)
	}
	if err := p.reconcile(record, narration.Measured, logger); err != nil {
		return err
	}

	p.stage(r, StageCards)
	cards, err := engine.PlanCards(record, cfg.Channel)
	if err != nil {
		return fmt.Errorf("failed to plan cards: %w", err)
	}
	if err := engine.RenderCards(p.stages.Cards, cards, filepath.Join(workDir, "cards")); err != nil {
		return fmt.Errorf("failed to render cards: %w", err)
	}

	p.stage(r, StageVideo)
	silent := filepath.Join(workDir, "video_silent.mp4")
	if _, err := p.stages.Video.RenderTimeline(ctx, cards, filepath.Join(workDir, "clips"), silent); err != nil {
		return fmt.Errorf("video render failed: %w", err)
	}
	if err := utils.RequireFile(silent, "silent video"); err != nil {
		return err
	}

	base := filepath.Join(filepath.Dir(files.JSON), store.BaseName(record))
	if p.stages.Thumbnails != nil {
		logger := p.stage(r, StageThumbnail)
		thumb := base + "_thumbnail.png"
		if err := p.stages.Thumbnails.Render(record, thumb); err != nil {
			logger.WithError(err).Warn("⚠️ thumbnail generation failed")
			record.AddWarning("thumbnail generation failed: %v", err)
		} else {
			record.ThumbnailPath = thumb
		}
	}

	p.stage(r, StageMux)
	main, _ := record.Timeline.Segment(NarrationSegment)
	final := base + ".mp4"
	strategy, err := p.stages.Muxer.Mux(ctx, engine.MuxInput{
		Video:           silent,
		Narration:       narration.Path,
		Output:          final,
		NarrationStart:  main.Start,
		Total:           record.Timeline.Total,
		BackgroundMusic: cfg.Video.BackgroundMusic,
		VoiceVolume:     cfg.Video.VoiceVolume,
		BGMVolume:       cfg.Video.BGMVolume,
		ToneFrequency:   cfg.Video.ToneFrequency,
	})
	if err != nil {
		return fmt.Errorf("mux failed: %w", err)
	}
	if err := utils.RequireFile(final, "final video"); err != nil {
		return err
	}
	record.VideoPath = final
	r.result.VideoPath = final
	r.result.Strategy = strategy

	if r.req.Upload {
		if err := p.upload(ctx, r); err != nil {
			return err
		}
	}

	p.stage(r, StageDone)
	return nil
}

// reconcile records a narration/timeline mismatch as a warning
func (p *Pipeline) reconcile(record *models.ContentRecord, measured time.Duration, logger logrus.FieldLogger) error {
	rec, err := timeline.Reconcile(record.Timeline, NarrationSegment, measured, p.opts.Tolerance)
	if err != nil {
		return fmt.Errorf("failed to reconcile narration: %w", err)
	}
	fields := logrus.Fields{
		"expected": rec.Expected.String(),
		"actual":   rec.Actual.String(),
		"drift":    rec.Drift.String(),
	}
	if mismatch := rec.Err(); mismatch != nil {
		logger.WithFields(fields).Warn("⚠️ narration does not fit the main segment")
		record.AddWarning("%v", mismatch)
		return nil
	}
	logger.WithFields(fields).Info("narration fits the main segment")
	return nil
}

func (p *Pipeline) upload(ctx context.Context, r *run) error {
	logger := p.stage(r, StageUpload)
	if p.stages.Publisher == nil {
		return fmt.Errorf("upload requested but no YouTube uploader is configured")
	}
	record := r.record
	channel := p.opts.Config.Channel

	meta := youtube.MetadataFor(record, channel, r.req.Privacy, p.opts.CategoryID)
	videoID, err := p.stages.Publisher.Upload(ctx, record.VideoPath, meta, func(current, total int64) {
		if total > 0 {
			logger.Debugf("upload progress %d%%", current*100/total)
		}
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	record.VideoID = videoID
	r.result.VideoID = videoID

	playlistID, err := p.stages.Publisher.EnsurePlaylist(ctx,
		youtube.PlaylistTitle(record.ContentType),
		youtube.PlaylistDescription(record.ContentType, channel),
		meta.Privacy,
	)
	if err == nil {
		err = p.stages.Publisher.AddToPlaylist(ctx, playlistID, videoID)
	}
	if err != nil {
		logger.WithError(err).Warn("⚠️ playlist update failed")
		record.AddWarning("playlist update failed: %v", err)
	}
	return nil
}

// finish persists the record and reports the outcome. Failures here are
// logged and never replace the run error.
func (p *Pipeline) finish(ctx context.Context, r *run, runErr error) {
	event := notify.Event{
		RunID:       r.id,
		ContentType: r.req.Type,
		VideoID:     r.result.VideoID,
		VideoPath:   r.result.VideoPath,
		Duration:    r.result.Elapsed,
		Err:         runErr,
	}

	if r.record != nil {
		event.Title = r.record.Title
		event.Warnings = r.record.Warnings
		if runErr != nil {
			r.record.AddWarning("run failed: %v", runErr)
		}
		if files, err := p.stages.Writer.Write(r.record); err != nil {
			r.logger.WithError(err).Error("failed to write final record")
		} else {
			r.result.Files = files
		}
		if p.stages.History != nil {
			if err := p.stages.History.Save(ctx, r.record); err != nil {
				r.logger.WithError(err).Warn("failed to store run history")
			}
		}
	}

	if p.stages.Notifier != nil {
		if err := p.stages.Notifier.Notify(ctx, event); err != nil {
			r.logger.WithError(err).Warn("failed to send notification")
		}
	}

	if runErr != nil {
		r.logger.WithError(runErr).Error("❌ production run failed")
		return
	}
	r.logger.WithFields(logrus.Fields{
		"video":    r.result.VideoPath,
		"video_id": r.result.VideoID,
		"elapsed":  r.result.Elapsed.Round(time.Millisecond).String(),
	}).Info("🎉 production run complete")
}
