package engine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/timeline"
)

// CardRenderer draws timeline cards as PNG images
type CardRenderer struct {
	font     *LoadedFont
	settings models.Settings
}

// NewCardRenderer creates a renderer using the resolved font
func NewCardRenderer(f *LoadedFont, settings models.Settings) *CardRenderer {
	return &CardRenderer{font: f, settings: settings}
}

// PlanCards lays the record out on its timeline: one intro card, one card per
// body paragraph inside the main segment, one outro card
func PlanCards(record *models.ContentRecord, channel models.ChannelInfo) ([]Card, error) {
	tl := record.Timeline
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("record timeline: %w", err)
	}

	var cards []Card
	for _, seg := range tl.Segments {
		switch seg.Name {
		case "intro":
			cards = append(cards, Card{
				Segment: seg.Name, Kind: IntroCard,
				Heading: record.Title, Text: channel.Name, Footer: channel.Slogan,
				Start: seg.Start, Length: seg.Length,
			})
		case "outro":
			cards = append(cards, Card{
				Segment: seg.Name, Kind: OutroCard,
				Heading: channel.Outro, Footer: channel.Slogan,
				Start: seg.Start, Length: seg.Length,
			})
		case "main":
			body, err := bodyCards(seg, record)
			if err != nil {
				return nil, err
			}
			cards = append(cards, body...)
		default:
			cards = append(cards, Card{
				Segment: seg.Name, Kind: IntroCard,
				Heading: record.Title, Footer: channel.Slogan,
				Start: seg.Start, Length: seg.Length,
			})
		}
	}
	return cards, nil
}

func bodyCards(seg timeline.Segment, record *models.ContentRecord) ([]Card, error) {
	if len(record.Paragraphs) == 0 {
		return []Card{{Segment: seg.Name, Kind: BodyCard, Heading: record.Title, Start: seg.Start, Length: seg.Length}}, nil
	}

	specs := make([]timeline.Spec, len(record.Paragraphs))
	for i, p := range record.Paragraphs {
		weight := float64(utf8.RuneCountInString(p))
		if weight == 0 {
			weight = 1
		}
		specs[i] = timeline.Weighted(fmt.Sprintf("%s_%02d", seg.Name, i+1), weight)
	}

	parts, err := seg.Subdivide(specs)
	if err != nil {
		return nil, fmt.Errorf("split %s across paragraphs: %w", seg.Name, err)
	}

	cards := make([]Card, len(parts))
	for i, part := range parts {
		cards[i] = Card{
			Segment: seg.Name, Kind: BodyCard,
			Text:  record.Paragraphs[i],
			Start: part.Start, Length: part.Length,
		}
	}
	return cards, nil
}

// Render draws card to path
func (r *CardRenderer) Render(card Card, path string) error {
	width, height := r.settings.Width, r.settings.Height
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillGradient(img, toColor(r.settings.BackgroundTop), toColor(r.settings.BackgroundBot))

	titleFace, err := r.font.Face(r.settings.TitleFontSize)
	if err != nil {
		return fmt.Errorf("failed to create title face: %w", err)
	}
	defer titleFace.Close()
	bodyFace, err := r.font.Face(r.settings.BodyFontSize)
	if err != nil {
		return fmt.Errorf("failed to create body face: %w", err)
	}
	defer bodyFace.Close()

	textColor := toColor(r.settings.TextColor)
	maxWidth := width * 8 / 10

	var blocks []textBlock
	if card.Heading != "" {
		blocks = append(blocks, textBlock{face: titleFace, lines: WrapText(titleFace, card.Heading, maxWidth), color: textColor})
	}
	if card.Text != "" {
		blocks = append(blocks, textBlock{face: bodyFace, lines: WrapText(bodyFace, card.Text, maxWidth), color: textColor})
	}
	drawCentered(img, blocks, height/2)

	if card.Footer != "" {
		footer := WrapText(bodyFace, card.Footer, maxWidth)
		footerColor := color.NRGBA{textColor.R, textColor.G, textColor.B, 170}
		y := height - height/10 - lineHeight(bodyFace)*(len(footer)-1)
		for _, line := range footer {
			drawLine(img, bodyFace, line, y, footerColor)
			y += lineHeight(bodyFace)
		}
	}

	return savePNG(img, path)
}

type textBlock struct {
	face  font.Face
	lines []string
	color color.Color
}

// drawCentered stacks the blocks vertically around centerY
func drawCentered(img *image.RGBA, blocks []textBlock, centerY int) {
	spacing := 0
	total := 0
	for i, b := range blocks {
		total += lineHeight(b.face) * len(b.lines)
		if i > 0 {
			spacing = lineHeight(b.face)
			total += spacing
		}
	}

	y := centerY - total/2
	for i, b := range blocks {
		if i > 0 {
			y += spacing
		}
		ascent := b.face.Metrics().Ascent.Ceil()
		for _, line := range b.lines {
			drawLine(img, b.face, line, y+ascent, b.color)
			y += lineHeight(b.face)
		}
	}
}

func drawLine(img *image.RGBA, face font.Face, text string, baseline int, c color.Color) {
	width := font.MeasureString(face, text).Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P((img.Bounds().Dx()-width)/2, baseline),
	}
	d.DrawString(text)
}

func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil() * 13 / 10
}

// WrapText breaks text into lines no wider than maxWidth. Words wider than
// maxWidth are broken between runes.
func WrapText(face font.Face, text string, maxWidth int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		current := ""
		for _, word := range strings.Fields(paragraph) {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if font.MeasureString(face, candidate).Ceil() <= maxWidth {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			for font.MeasureString(face, word).Ceil() > maxWidth {
				head, tail := splitToWidth(face, word, maxWidth)
				lines = append(lines, head)
				word = tail
			}
			current = word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// splitToWidth returns the longest rune prefix of word that fits, at least
// one rune
func splitToWidth(face font.Face, word string, maxWidth int) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && font.MeasureString(face, string(runes[:n+1])).Ceil() <= maxWidth {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

func fillGradient(img *image.RGBA, top, bottom color.RGBA) {
	bounds := img.Bounds()
	h := bounds.Dy()
	for y := 0; y < h; y++ {
		t := float64(y) / float64(max(h-1, 1))
		c := color.RGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 255,
		}
		draw.Draw(img, image.Rect(bounds.Min.X, y, bounds.Max.X, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

func toColor(rgb *models.RGB) color.RGBA {
	if rgb == nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func savePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}
