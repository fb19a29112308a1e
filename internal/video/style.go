package video

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgpai22/clipper/internal/subtitle"
)

// Style describes how burned-in captions look.
type Style struct {
	// FontPath is a .ttf/.otf file or a directory of fonts. Empty means the
	// renderer's default font.
	FontPath    string
	FontName    string
	FontSize    int
	Color       string // "#RRGGBB"
	StrokeColor string // "#RRGGBB"
	StrokeWidth float64
}

func DefaultStyle() Style {
	return Style{
		FontSize:    72,
		Color:       "#FFFFFF",
		StrokeColor: "#000000",
		StrokeWidth: 3,
	}
}

var fontExts = map[string]bool{".ttf": true, ".otf": true, ".ttc": true}

func (s Style) Validate() error {
	if s.FontSize <= 0 {
		return fmt.Errorf("font size must be positive, got %d", s.FontSize)
	}
	if s.StrokeWidth < 0 {
		return fmt.Errorf("stroke width must not be negative, got %v", s.StrokeWidth)
	}
	if _, err := subtitle.ASSColor(s.Color); err != nil {
		return fmt.Errorf("font colour: %w", err)
	}
	if _, err := subtitle.ASSColor(s.StrokeColor); err != nil {
		return fmt.Errorf("stroke colour: %w", err)
	}
	if s.FontPath != "" {
		if _, err := os.Stat(s.FontPath); err != nil {
			return fmt.Errorf("font path: %w", err)
		}
	}
	return nil
}

// fonts resolves the directory handed to libass and the family name the
// ASS style refers to.
func (s Style) fonts() (dir, name string, err error) {
	name = s.FontName
	if s.FontPath == "" {
		if name == "" {
			name = "Arial"
		}
		return "", name, nil
	}

	info, err := os.Stat(s.FontPath)
	if err != nil {
		return "", "", fmt.Errorf("font path: %w", err)
	}

	if !info.IsDir() {
		if name == "" {
			base := filepath.Base(s.FontPath)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		return filepath.Dir(s.FontPath), name, nil
	}

	if name == "" {
		entries, err := os.ReadDir(s.FontPath)
		if err != nil {
			return "", "", fmt.Errorf("read fonts dir: %w", err)
		}
		var candidates []string
		for _, e := range entries {
			if !e.IsDir() && fontExts[strings.ToLower(filepath.Ext(e.Name()))] {
				candidates = append(candidates, e.Name())
			}
		}
		if len(candidates) == 0 {
			return "", "", fmt.Errorf("no font files in %s", s.FontPath)
		}
		sort.Strings(candidates)
		name = strings.TrimSuffix(candidates[0], filepath.Ext(candidates[0]))
	}
	return s.FontPath, name, nil
}

// assStyle maps the style onto the subtitle package's ASS style for a frame
// of width x height.
func (s Style) assStyle(name string, width, height int) (subtitle.ASSStyle, error) {
	primary, err := subtitle.ASSColor(s.Color)
	if err != nil {
		return subtitle.ASSStyle{}, err
	}
	outline, err := subtitle.ASSColor(s.StrokeColor)
	if err != nil {
		return subtitle.ASSStyle{}, err
	}

	st := subtitle.DefaultASSStyle()
	st.FontName = name
	st.FontSize = s.FontSize
	st.PrimaryColour = primary
	st.OutlineColour = outline
	st.Outline = s.StrokeWidth
	st.Shadow = 0
	st.Alignment = 2
	st.PlayResX = width
	st.PlayResY = height
	if height > 0 {
		st.MarginV = height / 8
	}
	return st, nil
}
