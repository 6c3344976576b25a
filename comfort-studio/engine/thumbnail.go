package engine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"maro_automation/comfort-studio/models"
)

const (
	ThumbnailWidth  = 1280
	ThumbnailHeight = 720
)

// ThumbnailTheme is the color pair of one content type
type ThumbnailTheme struct {
	Background color.RGBA
	Accent     color.RGBA
}

var thumbnailThemes = map[models.ContentType]ThumbnailTheme{
	models.DailyComfort:     {Background: color.RGBA{45, 55, 75, 255}, Accent: color.RGBA{120, 180, 255, 255}},
	models.HealingSound:     {Background: color.RGBA{35, 65, 55, 255}, Accent: color.RGBA{100, 200, 150, 255}},
	models.OvercomeStory:    {Background: color.RGBA{65, 45, 65, 255}, Accent: color.RGBA{200, 120, 200, 255}},
	models.CustomComfort:    {Background: color.RGBA{55, 65, 45, 255}, Accent: color.RGBA{180, 200, 120, 255}},
	models.OneLineChallenge: {Background: color.RGBA{70, 55, 40, 255}, Accent: color.RGBA{240, 190, 120, 255}},
}

// ThemeFor returns the thumbnail theme for ct, defaulting to daily comfort
func ThemeFor(ct models.ContentType) ThumbnailTheme {
	if theme, ok := thumbnailThemes[ct]; ok {
		return theme
	}
	return thumbnailThemes[models.DailyComfort]
}

// ThumbnailRenderer draws the video thumbnail
type ThumbnailRenderer struct {
	font    *LoadedFont
	channel models.ChannelInfo
}

func NewThumbnailRenderer(f *LoadedFont, channel models.ChannelInfo) *ThumbnailRenderer {
	return &ThumbnailRenderer{font: f, channel: channel}
}

// Render writes a 1280x720 PNG with the title and up to three tags
func (t *ThumbnailRenderer) Render(record *models.ContentRecord, path string) error {
	theme := ThemeFor(record.ContentType)
	img := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(theme.Background), image.Point{}, draw.Src)

	// accent bars
	draw.Draw(img, image.Rect(0, 0, ThumbnailWidth, 16), image.NewUniform(theme.Accent), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, ThumbnailHeight-16, ThumbnailWidth, ThumbnailHeight), image.NewUniform(theme.Accent), image.Point{}, draw.Src)

	titleFace, err := t.font.Face(76)
	if err != nil {
		return fmt.Errorf("failed to create title face: %w", err)
	}
	defer titleFace.Close()
	smallFace, err := t.font.Face(40)
	if err != nil {
		return fmt.Errorf("failed to create tag face: %w", err)
	}
	defer smallFace.Close()

	white := color.RGBA{255, 255, 255, 255}
	maxWidth := ThumbnailWidth * 85 / 100

	blocks := []textBlock{
		{face: smallFace, lines: []string{record.ContentType.Label()}, color: theme.Accent},
		{face: titleFace, lines: WrapText(titleFace, record.Title, maxWidth), color: white},
	}
	if tags := thumbnailTags(record.Tags, 3); tags != "" {
		blocks = append(blocks, textBlock{face: smallFace, lines: WrapText(smallFace, tags, maxWidth), color: theme.Accent})
	}
	drawCentered(img, blocks, ThumbnailHeight/2)

	drawLine(img, smallFace, t.channel.Name, ThumbnailHeight-48, white)

	return savePNG(img, path)
}

func thumbnailTags(tags []string, limit int) string {
	var out []string
	for _, tag := range tags {
		if len(out) == limit {
			break
		}
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" {
			continue
		}
		out = append(out, "#"+tag)
	}
	return strings.Join(out, " ")
}
