package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout extracts text from a layout's text anchor segments.
// Indices are counted in runes of the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, runes []rune) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	result := strings.Builder{}
	totalRunes := len(runes)

	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > totalRunes {
			end = totalRunes
		}
		if start > end {
			start = end
		}
		result.WriteString(string(runes[start:end]))
	}
	return result.String()
}

// cleanText collapses whitespace, including the line breaks Document AI
// keeps at the end of lines and tokens
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isElementInParent reports whether the first text segment of element lies
// within the first text segment of parent
func isElementInParent(element, parent *documentaipb.Document_Page_Layout) bool {
	if element == nil || parent == nil ||
		element.TextAnchor == nil || parent.TextAnchor == nil ||
		len(element.TextAnchor.TextSegments) == 0 || len(parent.TextAnchor.TextSegments) == 0 {
		return false
	}

	e := element.TextAnchor.TextSegments[0]
	p := parent.TextAnchor.TextSegments[0]
	return e.StartIndex >= p.StartIndex && e.EndIndex <= p.EndIndex
}
