package dedupe

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	codeFenceRE  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRE = regexp.MustCompile("`[^`]*`")
	imageRE      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRE       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRE    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRE   = regexp.MustCompile(`[*_~]{1,3}`)
	blockquoteRE = regexp.MustCompile(`(?m)^>\s?`)
	listMarkerRE = regexp.MustCompile(`(?m)^\s*(?:[-+*]|\d+\.)\s+`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// StripMarkup reduces markdown (possibly with embedded HTML) to lower
// case plain text with collapsed whitespace, so similarity scores
// compare prose rather than formatting.
func StripMarkup(text string) string {
	text = codeFenceRE.ReplaceAllString(text, " ")
	text = inlineCodeRE.ReplaceAllString(text, " ")
	text = imageRE.ReplaceAllString(text, " ")
	text = linkRE.ReplaceAllString(text, "$1")
	text = headingRE.ReplaceAllString(text, "")
	text = blockquoteRE.ReplaceAllString(text, "")
	text = listMarkerRE.ReplaceAllString(text, "")
	text = emphasisRE.ReplaceAllString(text, "")

	if strings.Contains(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}

	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// NormalizeTitle prepares a title for comparison. Trailing whitespace
// and case differences are exactly what exported copies tend to vary
// in.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRE.ReplaceAllString(title, " ")))
}
