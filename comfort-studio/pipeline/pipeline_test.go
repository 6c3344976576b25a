package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maro_automation/comfort-studio/engine"
	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/notify"
	"maro_automation/comfort-studio/speech"
	"maro_automation/comfort-studio/store"
	"maro_automation/comfort-studio/timeline"
	"maro_automation/comfort-studio/youtube"
)

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("data"), 0644)
}

type fakeScripts struct {
	err error
}

func (f *fakeScripts) Generate(_ context.Context, ct models.ContentType, topic string) (*models.ContentRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	tl, err := timeline.Build(180*time.Second, []timeline.Spec{
		timeline.Fixed("intro", 15*time.Second),
		timeline.Fixed("main", 130*time.Second),
		timeline.Fixed("outro", 35*time.Second),
	})
	if err != nil {
		return nil, err
	}
	record := &models.ContentRecord{
		ID:          "generator-id",
		ContentType: ct,
		Topic:       topic,
		Title:       "오늘의 위로: " + topic,
		Paragraphs:  []string{"첫 번째 문단입니다.", "두 번째 문단입니다."},
		BodyText:    "첫 번째 문단입니다.\n\n두 번째 문단입니다.",
		Tags:        []string{"maro"},
		CreatedAt:   time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
	}
	record.SetTimeline(tl)
	return record, nil
}

type fakeNarrator struct {
	measured  time.Duration
	warnings  []string
	skipWrite bool
	calls     int
}

func (f *fakeNarrator) Narrate(_ context.Context, paragraphs []string, dir string) (*speech.Narration, error) {
	f.calls++
	path := filepath.Join(dir, "narration.mp3")
	if !f.skipWrite {
		if err := touch(path); err != nil {
			return nil, err
		}
	}
	return &speech.Narration{Path: path, Expected: f.measured, Measured: f.measured, Warnings: f.warnings}, nil
}

type fakePainter struct {
	cards []engine.Card
}

func (f *fakePainter) Render(card engine.Card, path string) error {
	f.cards = append(f.cards, card)
	return touch(path)
}

type fakeVideo struct {
	calls int
}

func (f *fakeVideo) RenderTimeline(_ context.Context, cards []engine.Card, _ string, output string) (time.Duration, error) {
	f.calls++
	var total time.Duration
	for _, c := range cards {
		if c.ImagePath == "" {
			return 0, errors.New("card without image")
		}
		total += c.Length
	}
	return total, touch(output)
}

type fakeThumbs struct{}

func (fakeThumbs) Render(_ *models.ContentRecord, path string) error { return touch(path) }

type fakeMuxer struct {
	err   error
	input engine.MuxInput
}

func (f *fakeMuxer) Mux(_ context.Context, in engine.MuxInput) (string, error) {
	f.input = in
	if f.err != nil {
		return "", f.err
	}
	return "amix", touch(in.Output)
}

type fakePublisher struct {
	meta      youtube.Metadata
	uploads   int
	playlists []string
	added     []string
}

func (f *fakePublisher) Upload(_ context.Context, _ string, meta youtube.Metadata, _ youtube.ProgressFunc) (string, error) {
	f.uploads++
	f.meta = meta
	return "vid-1", nil
}

func (f *fakePublisher) EnsurePlaylist(_ context.Context, title, _, _ string) (string, error) {
	f.playlists = append(f.playlists, title)
	return "PL-1", nil
}

func (f *fakePublisher) AddToPlaylist(_ context.Context, playlistID, videoID string) error {
	f.added = append(f.added, playlistID+"/"+videoID)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeNotifier) Notify(_ context.Context, event notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeHistory struct {
	saved []*models.ContentRecord
}

func (f *fakeHistory) Save(_ context.Context, record *models.ContentRecord) error {
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeHistory) List(context.Context, int) ([]*models.ContentRecord, error) {
	return f.saved, nil
}

func (f *fakeHistory) FindByID(context.Context, string) (*models.ContentRecord, error) {
	return nil, store.ErrNotFound
}

type harness struct {
	dir       string
	scripts   *fakeScripts
	narrator  *fakeNarrator
	painter   *fakePainter
	video     *fakeVideo
	muxer     *fakeMuxer
	publisher *fakePublisher
	notifier  *fakeNotifier
	history   *fakeHistory
	stages    []string
}

func newHarness(t *testing.T) *harness {
	return &harness{
		dir:       t.TempDir(),
		scripts:   &fakeScripts{},
		narrator:  &fakeNarrator{measured: 128 * time.Second},
		painter:   &fakePainter{},
		video:     &fakeVideo{},
		muxer:     &fakeMuxer{},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		history:   &fakeHistory{},
	}
}

func (h *harness) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger, _ := test.NewNullLogger()
	p, err := New(Stages{
		Scripts:    h.scripts,
		Narrator:   h.narrator,
		Cards:      h.painter,
		Video:      h.video,
		Thumbnails: fakeThumbs{},
		Muxer:      h.muxer,
		Publisher:  h.publisher,
		Writer:     store.NewFileWriter(h.dir, logger),
		History:    h.history,
		Notifier:   h.notifier,
	}, Options{
		Logger: logger,
		NewID:  func() string { return "run-42" },
		OnStage: func(_ string, stage string) {
			h.stages = append(h.stages, stage)
		},
	})
	require.NoError(t, err)
	return p
}

func TestRunProducesAndUploadsVideo(t *testing.T) {
	h := newHarness(t)
	result, err := h.pipeline(t).Run(context.Background(), Request{
		Type: models.DailyComfort, Topic: "자존감을 높이는 방법", Upload: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "run-42", result.RunID)
	assert.Equal(t, "run-42", result.Record.ID)
	assert.Equal(t, "vid-1", result.VideoID)
	assert.Equal(t, "amix", result.Strategy)
	assert.Empty(t, result.Record.Warnings)
	assert.Equal(t, 128.0, result.Record.NarrationSeconds)

	assert.Equal(t, []string{StageScript, StageNarration, StageCards, StageVideo, StageThumbnail, StageMux, StageUpload, StageDone}, h.stages)

	assert.Equal(t, 15*time.Second, h.muxer.input.NarrationStart)
	assert.Equal(t, 180*time.Second, h.muxer.input.Total)

	require.Len(t, h.painter.cards, 4)
	assert.Equal(t, "intro", h.painter.cards[0].Segment)
	assert.Equal(t, 15*time.Second, h.painter.cards[1].Start)
	assert.Equal(t, 145*time.Second, h.painter.cards[3].Start)

	assert.Equal(t, "unlisted", h.publisher.meta.Privacy)
	assert.Equal(t, "25", h.publisher.meta.CategoryID)
	assert.NotEmpty(t, h.publisher.meta.Thumbnail)
	assert.Equal(t, []string{"maro - 매일"}, h.publisher.playlists)
	assert.Equal(t, []string{"PL-1/vid-1"}, h.publisher.added)

	expectedBase := filepath.Join(h.dir, "20260309", "daily_comfort_자존감을_높이는_방법")
	assert.Equal(t, expectedBase+".mp4", result.VideoPath)
	assert.Equal(t, expectedBase+".json", result.Files.JSON)

	data, err := os.ReadFile(result.Files.JSON)
	require.NoError(t, err)
	var saved models.ContentRecord
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "vid-1", saved.VideoID)
	assert.Equal(t, expectedBase+".mp4", saved.VideoPath)

	require.Len(t, h.history.saved, 1)
	require.Len(t, h.notifier.events, 1)
	assert.NoError(t, h.notifier.events[0].Err)
	assert.Equal(t, "vid-1", h.notifier.events[0].VideoID)
}

func TestRunFlagsNarrationMismatchWithoutAborting(t *testing.T) {
	h := newHarness(t)
	h.narrator.measured = 140 * time.Second

	result, err := h.pipeline(t).Run(context.Background(), Request{Type: models.DailyComfort, Topic: "쉼"})
	require.NoError(t, err)

	require.Len(t, result.Record.Warnings, 1)
	assert.Contains(t, result.Record.Warnings[0], mismatchText)
	assert.Equal(t, 0, h.publisher.uploads, "upload was not requested")
	assert.Equal(t, result.Record.Warnings, h.notifier.events[0].Warnings)
}

const mismatchText = "measured duration drifts beyond tolerance"

func TestRunCarriesNarrationWarnings(t *testing.T) {
	h := newHarness(t)
	h.narrator.warnings = []string{"narration concat is 131s, expected 128s from clips and silence"}

	result, err := h.pipeline(t).Run(context.Background(), Request{Type: models.DailyComfort, Topic: "쉼"})
	require.NoError(t, err)

	assert.Equal(t, h.narrator.warnings, result.Record.Warnings)
	assert.Equal(t, result.Record.Warnings, h.notifier.events[0].Warnings)
}

func TestRunAbortsOnMissingNarration(t *testing.T) {
	h := newHarness(t)
	h.narrator.skipWrite = true

	result, err := h.pipeline(t).Run(context.Background(), Request{Type: models.DailyComfort, Topic: "쉼"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narration missing")
	assert.Equal(t, 0, h.video.calls)
	assert.Empty(t, result.VideoPath)

	require.Len(t, h.notifier.events, 1)
	assert.Error(t, h.notifier.events[0].Err)
	require.Len(t, h.history.saved, 1)
	assert.Contains(t, h.history.saved[0].Warnings[len(h.history.saved[0].Warnings)-1], "run failed")
}

func TestRunStopsWhenMuxFails(t *testing.T) {
	h := newHarness(t)
	h.muxer.err = errors.New("all mux strategies failed")

	_, err := h.pipeline(t).Run(context.Background(), Request{Type: models.HealingSound, Topic: "숲", Upload: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mux failed")
	assert.Equal(t, 0, h.publisher.uploads)
}

func TestRunScriptFailure(t *testing.T) {
	h := newHarness(t)
	h.scripts.err = context.Canceled

	result, err := h.pipeline(t).Run(context.Background(), Request{Type: models.DailyComfort})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result.Record)
	assert.Equal(t, 0, h.narrator.calls)
	assert.Empty(t, h.history.saved)
	require.Len(t, h.notifier.events, 1)
}

func TestUploadWithoutPublisherFails(t *testing.T) {
	h := newHarness(t)
	logger, _ := test.NewNullLogger()
	p, err := New(Stages{
		Scripts:  h.scripts,
		Narrator: h.narrator,
		Cards:    h.painter,
		Video:    h.video,
		Muxer:    h.muxer,
		Writer:   store.NewFileWriter(h.dir, logger),
	}, Options{Logger: logger})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Request{Type: models.DailyComfort, Topic: "쉼", Upload: true})
	assert.ErrorContains(t, err, "no YouTube uploader")
}

func TestNewRequiresStages(t *testing.T) {
	_, err := New(Stages{}, Options{})
	assert.Error(t, err)
}
