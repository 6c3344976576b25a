package script

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/timeline"
)

// Generator writes the script for one content type
type Generator interface {
	ContentType() models.ContentType
	Generate(ctx context.Context, topic string) (*models.ContentRecord, error)
}

// narrationCharsPerSecond approximates calm Korean narration speed and sizes
// the requested script length
const narrationCharsPerSecond = 5

// writer owns the text of one content type
type writer interface {
	prompt(topic string, tl timeline.Timeline) string
	title(topic string) string
	fallback(topic string) string
}

// Options are the shared dependencies of all generators
type Options struct {
	Logger logrus.FieldLogger
	Rand   *rand.Rand
	Now    func() time.Time
	NewID  func() string
}

type topicPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (p *topicPicker) pick(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return candidates[p.rng.Intn(len(candidates))]
}

type base struct {
	contentType models.ContentType
	completer   Completer
	profile     *models.Profile
	channel     models.ChannelInfo
	logger      logrus.FieldLogger
	picker      *topicPicker
	now         func() time.Time
	newID       func() string
}

func (b *base) ContentType() models.ContentType {
	return b.contentType
}

func (b *base) generate(ctx context.Context, topic string, w writer) (*models.ContentRecord, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = b.picker.pick(b.profile.Topics)
	}
	if topic == "" {
		return nil, fmt.Errorf("%s: no topic given and no candidate topics configured", b.contentType)
	}

	tl, err := b.profile.Timeline()
	if err != nil {
		return nil, fmt.Errorf("%s timeline: %w", b.contentType, err)
	}

	logger := b.logger.WithFields(logrus.Fields{"content_type": b.contentType, "topic": topic})
	record := &models.ContentRecord{
		ID:          b.newID(),
		ContentType: b.contentType,
		Topic:       topic,
		Title:       w.title(topic),
		Tags:        mergeTags(b.channel.Tags, b.profile.Tags),
		CreatedAt:   b.now(),
	}
	record.SetTimeline(tl)

	text, err := b.completer.Complete(ctx, CompletionRequest{
		System:      b.systemPrompt(),
		Prompt:      w.prompt(topic, tl),
		MaxTokens:   b.profile.MaxTokens,
		Temperature: b.profile.Temperature,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s generation cancelled: %w", b.contentType, ctxErr)
		}
		logger.WithError(err).Warn("⚠️ script generation failed, using fallback text")
		record.AddWarning("script generation failed: %v", err)
		text = ""
	}

	paragraphs := NormalizeBody(text)
	if len(paragraphs) == 0 {
		if err == nil {
			logger.Warn("⚠️ generated script was empty, using fallback text")
			record.AddWarning("generated script was empty")
		}
		record.UsedFallback = true
		paragraphs = NormalizeBody(w.fallback(topic))
	}

	record.Paragraphs = paragraphs
	record.BodyText = strings.Join(paragraphs, "\n\n")

	logger.WithFields(logrus.Fields{
		"paragraphs":    len(paragraphs),
		"used_fallback": record.UsedFallback,
	}).Info("📝 script ready")
	return record, nil
}

func (b *base) systemPrompt() string {
	return fmt.Sprintf(`당신은 유튜브 채널 "%s"의 내레이션 작가입니다.
채널 슬로건: %s
따뜻하고 차분한 존댓말로, 소리 내어 읽기 좋은 문장을 씁니다.
제목, 마크다운, 목록 기호, 괄호 속 연출 지시 없이 내레이션 문장만 작성하고
단락 사이는 빈 줄로 구분하세요.`, b.channel.Name, b.channel.Slogan)
}

func mergeTags(groups ...[]string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, group := range groups {
		for _, tag := range group {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func seconds(tl timeline.Timeline, name string) int {
	seg, ok := tl.Segment(name)
	if !ok {
		return 0
	}
	return int(seg.Length.Round(time.Second) / time.Second)
}

func targetChars(tl timeline.Timeline) int {
	return seconds(tl, "main") * narrationCharsPerSecond
}

// Registry is the lookup table from content type to generator
type Registry struct {
	generators map[models.ContentType]Generator
}

// NewRegistry builds one generator per configured content type
func NewRegistry(completer Completer, cfg *models.StudioConfig, opts Options) (*Registry, error) {
	if completer == nil {
		return nil, errors.New("script registry needs a completer")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	picker := &topicPicker{rng: opts.Rand}

	registry := &Registry{generators: make(map[models.ContentType]Generator)}
	for _, ct := range models.AllContentTypes {
		profile, err := cfg.Profile(ct)
		if err != nil {
			return nil, err
		}
		b := base{
			contentType: ct,
			completer:   completer,
			profile:     profile,
			channel:     cfg.Channel,
			logger:      opts.Logger,
			picker:      picker,
			now:         opts.Now,
			newID:       opts.NewID,
		}

		switch ct {
		case models.DailyComfort:
			registry.generators[ct] = &DailyComfortGenerator{base: b}
		case models.HealingSound:
			registry.generators[ct] = &HealingSoundGenerator{base: b}
		case models.OvercomeStory:
			registry.generators[ct] = &OvercomeStoryGenerator{base: b}
		case models.CustomComfort:
			registry.generators[ct] = &CustomComfortGenerator{base: b}
		case models.OneLineChallenge:
			registry.generators[ct] = &OneLineChallengeGenerator{base: b}
		}
	}
	return registry, nil
}

// Get returns the generator for ct
func (r *Registry) Get(ct models.ContentType) (Generator, error) {
	generator, ok := r.generators[ct]
	if !ok {
		return nil, fmt.Errorf("no generator for content type %q", ct)
	}
	return generator, nil
}

// Generate dispatches to the generator for ct
func (r *Registry) Generate(ctx context.Context, ct models.ContentType, topic string) (*models.ContentRecord, error) {
	generator, err := r.Get(ct)
	if err != nil {
		return nil, err
	}
	return generator.Generate(ctx, topic)
}
