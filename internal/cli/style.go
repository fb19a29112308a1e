package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/video"
)

func addRenderFlags(cmd *cobra.Command) {
	d := video.DefaultStyle()
	cmd.Flags().String("font", "", "Font file (.ttf/.otf) or directory of fonts for burned-in captions")
	cmd.Flags().String("font-name", "", "Font family to use from --font (defaults to the file name)")
	cmd.Flags().Int("font-size", d.FontSize, "Caption font size at the output resolution")
	cmd.Flags().String("color", d.Color, "Caption colour as #RRGGBB")
	cmd.Flags().String("stroke-color", d.StrokeColor, "Caption outline colour as #RRGGBB")
	cmd.Flags().Float64("stroke-width", d.StrokeWidth, "Caption outline width")
	cmd.Flags().Int("width", 1080, "Output width in pixels")
	cmd.Flags().Int("height", 1920, "Output height in pixels")
	cmd.Flags().String("resize-mode", string(video.ResizeStretch), "How to fit the frame: stretch or fill (scale and crop)")
}

type renderOptions struct {
	style  video.Style
	width  int
	height int
	mode   video.ResizeMode
}

func renderOptionsFromFlags(cmd *cobra.Command) (renderOptions, error) {
	var o renderOptions
	o.style.FontPath, _ = cmd.Flags().GetString("font")
	o.style.FontName, _ = cmd.Flags().GetString("font-name")
	o.style.FontSize, _ = cmd.Flags().GetInt("font-size")
	o.style.Color, _ = cmd.Flags().GetString("color")
	o.style.StrokeColor, _ = cmd.Flags().GetString("stroke-color")
	o.style.StrokeWidth, _ = cmd.Flags().GetFloat64("stroke-width")
	o.width, _ = cmd.Flags().GetInt("width")
	o.height, _ = cmd.Flags().GetInt("height")
	mode, _ := cmd.Flags().GetString("resize-mode")

	var err error
	if o.mode, err = video.ParseResizeMode(mode); err != nil {
		return o, err
	}
	if err := o.style.Validate(); err != nil {
		return o, fmt.Errorf("invalid caption style: %w", err)
	}
	return o, nil
}

// prompter asks for values on an interactive terminal. An empty answer
// keeps the default.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// fill prompts for flag unless it was set on the command line, and stores
// the answer back into the flag so validation sees it.
func (p *prompter) fill(cmd *cobra.Command, flag, question string) error {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		return fmt.Errorf("unknown flag %q", flag)
	}
	if f.Changed {
		return nil
	}
	answer, err := p.ask(question, f.Value.String())
	if err != nil {
		return err
	}
	if err := cmd.Flags().Set(flag, answer); err != nil {
		return fmt.Errorf("invalid %s %q: %w", flag, answer, err)
	}
	return nil
}

// parseSize accepts "1080x1920".
func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q must look like WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: bad width: %w", s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: bad height: %w", s, err)
	}
	return width, height, nil
}
