package intake

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespacePattern = regexp.MustCompile(`[ \t]+`)

// SanitizeDescription flattens issue descriptions pasted from email clients
// or helpdesk tools into plain text. Markup is stripped, script/style blocks
// are removed, and runs of whitespace collapse. Plain-text input passes
// through unchanged apart from trimming.
func SanitizeDescription(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "<") {
		return collapseWhitespace(trimmed)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return collapseWhitespace(trimmed)
	}

	doc.Find("script, style, head").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		// Not actually HTML, just text containing a '<'.
		return collapseWhitespace(trimmed)
	}

	return collapseWhitespace(text)
}

func collapseWhitespace(text string) string {
	text = whitespacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
