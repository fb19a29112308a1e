package pipeline

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/mgpai22/clipper/internal/subtitle"
)

// minAgreement is the similarity below which a highlight is reported as
// not matching what was said.
const minAgreement = 0.6

// Agreement compares the words of highlight with the words the transcript
// has over the same span. 1 means identical text, 0 nothing in common.
// Models sometimes paraphrase or invent captions; the cut still follows the
// highlight's timestamps, so this only feeds a warning.
func Agreement(transcript, highlight *subtitle.Subtitle) float64 {
	span, err := subtitle.ExtractSpan(highlight)
	if err != nil {
		return 0
	}

	var said []string
	for _, e := range transcript.Entries {
		if e.EndTime > span.Start && e.StartTime < span.End {
			said = append(said, e.Lines...)
		}
	}
	var shown []string
	for _, e := range highlight.Entries {
		shown = append(shown, e.Lines...)
	}

	a, b := normalizeWords(said), normalizeWords(shown)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

func normalizeWords(lines []string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.Join(lines, " "))), " ")
}
