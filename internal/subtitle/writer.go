package subtitle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title string
	Style ASSStyle
}

// ASSStyle is the single "Default" style written to the [V4+ Styles] section.
// Colours are in ASS notation (&HAABBGGRR), see ASSColor.
type ASSStyle struct {
	FontName      string
	FontSize      int
	PrimaryColour string
	OutlineColour string
	Outline       float64
	Shadow        float64
	Alignment     int
	MarginV       int
	PlayResX      int
	PlayResY      int
}

func DefaultASSStyle() ASSStyle {
	return ASSStyle{
		FontName:      "Arial",
		FontSize:      20,
		PrimaryColour: "&H00FFFFFF",
		OutlineColour: "&H00000000",
		Outline:       2,
		Shadow:        2,
		Alignment:     2,
		MarginV:       10,
	}
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title: "Clipper Generated Subtitles",
			Style: DefaultASSStyle(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// MarshalSRT renders sub as SubRip text. Indices are always written as 1..N.
func MarshalSRT(sub *Subtitle) []byte {
	var buf bytes.Buffer
	_ = WriteSRT(&buf, sub)
	return buf.Bytes()
}

func WriteSRT(w io.Writer, sub *Subtitle) error {
	var sb strings.Builder
	for i, entry := range sub.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}

		// index (1-based)
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")

		// timestamps: 00:00:00,000 --> 00:00:00,000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatSRTTime(entry.StartTime),
			formatSRTTime(entry.EndTime)))

		for _, line := range entry.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// writes the subtitle to an SRT file
func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	return os.WriteFile(path, MarshalSRT(sub), 0644)
}

// writes the subtitle to a VTT file
func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var sb strings.Builder

	// VTT header
	sb.WriteString("WEBVTT\n\n")

	for i, entry := range sub.Entries {
		// optional cue identifier
		sb.WriteString(fmt.Sprintf("%d\n", i+1))

		// timestamps: 00:00:00.000 --> 00:00:00.000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatVTTTime(entry.StartTime),
			formatVTTTime(entry.EndTime)))

		sb.WriteString(entry.Text())
		sb.WriteString("\n\n")
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// writes the subtitle to an ASS file
func (w *ASSWriter) Write(sub *Subtitle, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	st := w.Style

	var sb strings.Builder

	// script info section
	sb.WriteString("[Script Info]\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", w.Title))
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	if st.PlayResX > 0 && st.PlayResY > 0 {
		sb.WriteString(fmt.Sprintf("PlayResX: %d\n", st.PlayResX))
		sb.WriteString(fmt.Sprintf("PlayResY: %d\n", st.PlayResY))
	}
	sb.WriteString("PlayDepth: 0\n\n")

	// v4+ styles section
	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf("Style: Default,%s,%d,%s,&H000000FF,%s,&H00000000,0,0,0,0,100,100,0,0,1,%s,%s,%d,10,10,%d,1\n\n",
		st.FontName,
		st.FontSize,
		st.PrimaryColour,
		st.OutlineColour,
		strconv.FormatFloat(st.Outline, 'f', -1, 64),
		strconv.FormatFloat(st.Shadow, 'f', -1, 64),
		st.Alignment,
		st.MarginV,
	))

	// events section
	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, entry := range sub.Entries {
		// dialogue line
		sb.WriteString(fmt.Sprintf("Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(entry.StartTime),
			formatASSTime(entry.EndTime),
			escapeASSText(entry.Text())))
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// ASSColor converts "#RRGGBB" (or "RRGGBB") into the &H00BBGGRR form ASS
// expects.
func ASSColor(hex string) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return "", fmt.Errorf("invalid hex colour %q: want RRGGBB", hex)
	}
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return "", fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}
	h = strings.ToUpper(h)
	return "&H00" + h[4:6] + h[2:4] + h[0:2], nil
}

func formatSRTTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

func formatVTTTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func formatASSTime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	centis := (int(d.Milliseconds()) % 1000) / 10

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\n", "\\N")
	return text
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}
