package engine

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/timeline"
)

// fakeRunner records commands. ffmpeg calls create their output file (the
// last argument) unless failWhen matches the joined arguments.
type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	failWhen func(args string) bool
	probe    string
	encoders string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))

	joined := strings.Join(args, " ")
	if f.failWhen != nil && f.failWhen(joined) {
		return []byte("Error initializing complex filters"), errors.New("exit status 1")
	}
	switch {
	case name == "ffprobe":
		return []byte(f.probe), nil
	case len(args) == 2 && args[1] == "-encoders":
		return []byte(f.encoders), nil
	}
	if out := args[len(args)-1]; out != "-" {
		_ = os.WriteFile(out, []byte("media"), 0644)
	}
	return nil, nil
}

func (f *fakeRunner) ffmpegCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, call := range f.calls {
		if call[0] == "ffmpeg" {
			out = append(out, strings.Join(call[1:], " "))
		}
	}
	return out
}

func embeddedChain(t *testing.T, paths ...string) *FontChain {
	logger, _ := test.NewNullLogger()
	var sources []FontSource
	for _, p := range paths {
		sources = append(sources, fileFont{path: p})
	}
	return &FontChain{sources: append(sources, embeddedFont{}), logger: logger}
}

func testFont(t *testing.T) *LoadedFont {
	t.Helper()
	f, err := embeddedChain(t).Resolve()
	require.NoError(t, err)
	return f
}

func TestFontChainFallsBackToEmbedded(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.ttf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a font"), 0644))
	latinOnly := filepath.Join(dir, "goregular.ttf")
	require.NoError(t, os.WriteFile(latinOnly, goregular.TTF, 0644))

	chain := embeddedChain(t, filepath.Join(dir, "missing.ttf"), garbage, latinOnly)
	f, err := chain.Resolve()
	require.NoError(t, err)

	assert.True(t, f.Fallback)
	assert.Equal(t, "embedded Go Regular", f.Source)
}

func TestFontChainOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	chain := NewFontChain([]string{"/custom/font.ttf", "/custom/font.ttf"}, logger)

	require.Greater(t, len(chain.sources), 2)
	assert.Equal(t, "/custom/font.ttf", chain.sources[0].Name())
	assert.Equal(t, platformFontPaths[0], chain.sources[1].Name())
	assert.Equal(t, "embedded Go Regular", chain.sources[len(chain.sources)-1].Name())
}

func TestWrapText(t *testing.T) {
	face, err := testFont(t).Face(32)
	require.NoError(t, err)
	defer face.Close()

	text := "the quick brown fox jumps over the lazy dog and keeps running through the field"
	lines := WrapText(face, text, 300)

	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, font.MeasureString(face, line).Ceil(), 300, line)
	}
	assert.Equal(t, text, strings.Join(lines, " "))
}

func TestWrapTextBreaksLongWords(t *testing.T) {
	face, err := testFont(t).Face(32)
	require.NoError(t, err)
	defer face.Close()

	lines := WrapText(face, strings.Repeat("W", 40), 200)
	require.Greater(t, len(lines), 1)
	assert.Equal(t, strings.Repeat("W", 40), strings.Join(lines, ""))
}

func testRecord(t *testing.T) *models.ContentRecord {
	t.Helper()
	tl, err := timeline.Build(180*time.Second, []timeline.Spec{
		timeline.Fixed("intro", 15*time.Second),
		timeline.Weighted("main", 1),
		timeline.Fixed("outro", 35*time.Second),
	})
	require.NoError(t, err)

	record := &models.ContentRecord{
		ContentType: models.DailyComfort,
		Title:       "Daily comfort",
		Paragraphs:  []string{"aaaa", "bbbbbbbbbbbb"},
		Tags:        []string{"maro", "#healing", "calm", "extra"},
	}
	record.SetTimeline(tl)
	return record
}

func TestPlanCards(t *testing.T) {
	cards, err := PlanCards(testRecord(t), models.DefaultConfig().Channel)
	require.NoError(t, err)
	require.Len(t, cards, 4)

	assert.Equal(t, IntroCard, cards[0].Kind)
	assert.Equal(t, 15*time.Second, cards[0].Length)

	assert.Equal(t, BodyCard, cards[1].Kind)
	assert.Equal(t, 15*time.Second, cards[1].Start)
	assert.Equal(t, 32500*time.Millisecond, cards[1].Length)
	assert.Equal(t, 47500*time.Millisecond, cards[2].Start)
	assert.Equal(t, 97500*time.Millisecond, cards[2].Length)

	assert.Equal(t, OutroCard, cards[3].Kind)
	assert.Equal(t, 145*time.Second, cards[3].Start)

	var total time.Duration
	for _, c := range cards {
		total += c.Length
	}
	assert.Equal(t, 180*time.Second, total)
}

func TestRenderCardAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	f := testFont(t)
	settings := models.DefaultConfig().Video
	settings.Width, settings.Height = 640, 360

	cardPath := filepath.Join(dir, "card.png")
	err := NewCardRenderer(f, settings).Render(Card{Heading: "Title", Text: "Body text", Footer: "slogan"}, cardPath)
	require.NoError(t, err)
	assertPNGSize(t, cardPath, 640, 360)

	thumbPath := filepath.Join(dir, "thumb.png")
	require.NoError(t, NewThumbnailRenderer(f, models.DefaultConfig().Channel).Render(testRecord(t), thumbPath))
	assertPNGSize(t, thumbPath, ThumbnailWidth, ThumbnailHeight)
}

func assertPNGSize(t *testing.T, path string, w, h int) {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	cfg, err := png.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, w, cfg.Width)
	assert.Equal(t, h, cfg.Height)
}

func TestThumbnailTags(t *testing.T) {
	assert.Equal(t, "#maro #healing #calm", thumbnailTags([]string{"maro", "#healing", " ", "calm", "extra"}, 3))
	assert.Equal(t, rgbOf(ThemeFor(models.OneLineChallenge).Accent), [3]uint8{240, 190, 120})
	assert.Equal(t, ThemeFor(models.DailyComfort), ThemeFor("unknown"))
}

func rgbOf(c interface{ RGBA() (r, g, b, a uint32) }) [3]uint8 {
	r, g, b, _ := c.RGBA()
	return [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

func TestRenderTimeline(t *testing.T) {
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()
	runner := &fakeRunner{probe: "180.0"}
	ve := NewVideoEditor(models.DefaultConfig().Video, runner, logger)

	cards, err := PlanCards(testRecord(t), models.DefaultConfig().Channel)
	require.NoError(t, err)
	for i := range cards {
		cards[i].ImagePath = filepath.Join(dir, "card.png")
	}
	require.NoError(t, os.WriteFile(cards[0].ImagePath, []byte("png"), 0644))

	d, err := ve.RenderTimeline(context.Background(), cards, dir, filepath.Join(dir, "video.mp4"))
	require.NoError(t, err)
	assert.Equal(t, 180*time.Second, d)

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 5)
	assert.Contains(t, calls[0], "-t 15.000")
	assert.Contains(t, calls[0], "-c:v libx264")
	assert.Contains(t, calls[4], "-f concat")
}

func TestRenderTimelineRequiresImages(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ve := NewVideoEditor(models.DefaultConfig().Video, &fakeRunner{}, logger)

	_, err := ve.RenderTimeline(context.Background(), []Card{{Segment: "intro", Length: time.Second, ImagePath: "/nope.png"}}, t.TempDir(), "out.mp4")
	assert.Error(t, err)
}

func TestEncoderSelection(t *testing.T) {
	logger, _ := test.NewNullLogger()
	settings := models.DefaultConfig().Video
	settings.UseGPU = true

	withGPU := NewVideoEditor(settings, &fakeRunner{encoders: "V..... h264_nvenc"}, logger)
	assert.Equal(t, "h264_nvenc", withGPU.encoderSettings(context.Background()).Codec)

	noNVENC := NewVideoEditor(settings, &fakeRunner{encoders: "V..... libx264"}, logger)
	assert.Equal(t, "libx264", noNVENC.encoderSettings(context.Background()).Codec)

	failing := NewVideoEditor(settings, &fakeRunner{
		encoders: "h264_nvenc",
		failWhen: func(args string) bool { return strings.Contains(args, "testsrc") },
	}, logger)
	assert.Equal(t, "libx264", failing.encoderSettings(context.Background()).Codec)
}

func muxFixture(t *testing.T) MuxInput {
	dir := t.TempDir()
	in := MuxInput{
		Video:          filepath.Join(dir, "video.mp4"),
		Narration:      filepath.Join(dir, "narration.mp3"),
		Output:         filepath.Join(dir, "final.mp4"),
		NarrationStart: 15 * time.Second,
		Total:          180 * time.Second,
	}
	require.NoError(t, os.WriteFile(in.Video, []byte("v"), 0644))
	require.NoError(t, os.WriteFile(in.Narration, []byte("a"), 0644))
	return in
}

func TestMuxerUsesFirstWorkingStrategy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	runner := &fakeRunner{}
	muxer, err := NewMuxer(runner, logger, nil)
	require.NoError(t, err)

	used, err := muxer.Mux(context.Background(), muxFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "amix", used)

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "adelay=15000|15000")
	assert.Contains(t, calls[0], "sine=frequency=174:duration=180.000")
	assert.Contains(t, calls[0], "amix=inputs=2")
	assert.Contains(t, calls[0], "-t 180.000")
}

func TestMuxerFallsThrough(t *testing.T) {
	logger, _ := test.NewNullLogger()
	runner := &fakeRunner{failWhen: func(args string) bool {
		return strings.Contains(args, "amix") || strings.Contains(args, "apad")
	}}
	muxer, err := NewMuxer(runner, logger, nil)
	require.NoError(t, err)

	used, err := muxer.Mux(context.Background(), muxFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "concat", used)
	require.Len(t, runner.ffmpegCalls(), 3)
	assert.Contains(t, runner.ffmpegCalls()[2], "[1:a][2:a][3:a]concat=n=3:v=0:a=1[aout]")
}

func TestMuxerAllFail(t *testing.T) {
	logger, _ := test.NewNullLogger()
	runner := &fakeRunner{failWhen: func(string) bool { return true }}
	muxer, err := NewMuxer(runner, logger, []string{"direct", "amix"})
	require.NoError(t, err)
	assert.Equal(t, []string{"direct", "amix"}, muxer.Strategies())

	_, err = muxer.Mux(context.Background(), muxFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direct: exit status 1")
	assert.Contains(t, err.Error(), "amix: exit status 1")
}

func TestMuxerMusicBedAndUnknownStrategy(t *testing.T) {
	in := muxFixture(t)
	in.BackgroundMusic = "/music/piano.mp3"
	in.BGMVolume = 0.3
	args := strings.Join(amixArgs(in), " ")
	assert.Contains(t, args, "-stream_loop -1 -i /music/piano.mp3")
	assert.Contains(t, args, "[2:a]volume=0.3[bg]")

	logger, _ := test.NewNullLogger()
	_, err := NewMuxer(&fakeRunner{}, logger, []string{"crossfade"})
	assert.Error(t, err)
}

func TestMuxerRequiresInputs(t *testing.T) {
	logger, _ := test.NewNullLogger()
	muxer, err := NewMuxer(&fakeRunner{}, logger, nil)
	require.NoError(t, err)

	in := muxFixture(t)
	require.NoError(t, os.Remove(in.Narration))
	_, err = muxer.Mux(context.Background(), in)
	assert.ErrorContains(t, err, "narration")
}
