package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ProbeRune must be present in a font for it to render Korean
const ProbeRune = '가'

// platformFontPaths are tried after the configured ones
var platformFontPaths = []string{
	"C:/Windows/Fonts/malgun.ttf",
	"C:/Windows/Fonts/gulim.ttc",
	"C:/Windows/Fonts/dotum.ttc",
	"C:/Windows/Fonts/batang.ttc",
	"/System/Library/Fonts/AppleSDGothicNeo.ttc",
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// FontSource is one step of the font fallback chain
type FontSource interface {
	Name() string
	Load() (*opentype.Font, error)
	// Required sources skip the glyph probe
	Required() bool
}

type fileFont struct {
	path string
}

func (f fileFont) Name() string   { return f.path }
func (f fileFont) Required() bool { return false }

func (f fileFont) Load() (*opentype.Font, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(f.path), ".ttc") {
		collection, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return collection.Font(0)
	}
	return opentype.Parse(data)
}

type embeddedFont struct{}

func (embeddedFont) Name() string   { return "embedded Go Regular" }
func (embeddedFont) Required() bool { return true }

func (embeddedFont) Load() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
}

// LoadedFont is the font a chain resolved to
type LoadedFont struct {
	Font     *opentype.Font
	Source   string
	Fallback bool
}

// Face creates a face of the given size in points
func (l *LoadedFont) Face(size float64) (font.Face, error) {
	return opentype.NewFace(l.Font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FontChain tries each source in order
type FontChain struct {
	sources []FontSource
	logger  logrus.FieldLogger
}

// NewFontChain builds the chain: configured paths, platform paths, then the
// embedded font
func NewFontChain(configured []string, logger logrus.FieldLogger) *FontChain {
	var sources []FontSource
	seen := make(map[string]bool)
	for _, path := range append(append([]string{}, configured...), platformFontPaths...) {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		sources = append(sources, fileFont{path: path})
	}
	sources = append(sources, embeddedFont{})
	return &FontChain{sources: sources, logger: logger}
}

// Resolve returns the first font that loads and can draw ProbeRune
func (c *FontChain) Resolve() (*LoadedFont, error) {
	var errs []error
	for _, source := range c.sources {
		f, err := source.Load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
			}
			continue
		}

		if source.Required() {
			c.logger.WithField("font", source.Name()).Warn("⚠️ no Korean font found, Hangul will not render")
			return &LoadedFont{Font: f, Source: source.Name(), Fallback: true}, nil
		}

		if !hasGlyph(f, ProbeRune) {
			c.logger.WithField("font", source.Name()).Debug("font has no Hangul glyphs, skipping")
			continue
		}

		c.logger.WithField("font", source.Name()).Info("🔤 using font")
		return &LoadedFont{Font: f, Source: source.Name()}, nil
	}
	return nil, fmt.Errorf("no usable font: %w", errors.Join(errs...))
}

func hasGlyph(f *opentype.Font, r rune) bool {
	idx, err := f.GlyphIndex(&sfnt.Buffer{}, r)
	return err == nil && idx != 0
}
