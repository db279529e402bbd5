// Package menu holds the OCR record model of a scanned menu: pages, lines and
// words with their bounding boxes, plus the per-line Analysis record that the
// filter pipeline scores.
//
// The tree is built once per input document and is structurally read-only
// afterwards. Only Line.Analysis changes while lines are being scored.
package menu

// ConfidenceLevel is the categorical OCR confidence of a word
type ConfidenceLevel string

const (
	ConfidenceUnknown ConfidenceLevel = ""
	ConfidenceHigh    ConfidenceLevel = "High"
	ConfidenceLow     ConfidenceLevel = "Low"
)

// TypePrice marks lines that look like prices
const TypePrice = "price"

// Analysis is the mutable per-line record the filter pipeline works on
type Analysis struct {
	CategoryConfidence float64 // Belief that the line is a category header, kept in [0,1]
	Type               string  // Optional classification tag such as "price"
}

// NewAnalysis returns an analysis with full category confidence.
func NewAnalysis() Analysis {
	return Analysis{CategoryConfidence: 1}
}

// Word is a single recognized word
type Word struct {
	Text       string          // Recognized text
	Box        BoundingBox     // Word coordinates
	Confidence ConfidenceLevel // OCR confidence, empty when not reported
}

// Line is a line of recognized text.
// Box is the OCR service's box for the whole line, not the union of the word boxes.
type Line struct {
	ID       int         // Stable index in flattened order, assigned by New
	Text     string      // Full line text
	Box      BoundingBox // Line coordinates
	Words    []Word      // Words in reading order
	Analysis Analysis    // Scoring state, the only mutable part of a line
}

// Page is one page of OCR results. Lines keep the order the OCR service
// returned them in, which is not necessarily spatial order.
type Page struct {
	Number      int     // 1-based page number
	Orientation float64 // Clockwise orientation in degrees
	Width       float64 // Page width in Unit
	Height      float64 // Page height in Unit
	Unit        Unit
	Lines       []*Line
}

// Menu is the root of the OCR tree for one input document
type Menu struct {
	Status string
	Pages  []*Page
}

// PageIndex maps a line ID to the number of the page that owns it
type PageIndex map[int]int

// New assembles a menu and assigns every line its stable ID, counting
// through pages in order and through lines in page order.
func New(status string, pages ...*Page) *Menu {
	m := &Menu{Status: status, Pages: pages}
	id := 0
	for _, page := range m.Pages {
		for _, line := range page.Lines {
			line.ID = id
			id++
		}
	}
	return m
}

// Lines flattens all pages into one ordered slice.
func (m *Menu) Lines() []*Line {
	var lines []*Line
	for _, page := range m.Pages {
		lines = append(lines, page.Lines...)
	}
	return lines
}

// PageIndex builds the line ID to page number side table.
func (m *Menu) PageIndex() PageIndex {
	index := make(PageIndex)
	for _, page := range m.Pages {
		for _, line := range page.Lines {
			index[line.ID] = page.Number
		}
	}
	return index
}

// Page returns the page with the given number, or nil.
func (m *Menu) Page(number int) *Page {
	for _, page := range m.Pages {
		if page.Number == number {
			return page
		}
	}
	return nil
}

// ResetAnalysis puts every line back to its initial analysis so the same
// menu can be scored again.
func (m *Menu) ResetAnalysis() {
	for _, line := range m.Lines() {
		line.Analysis = NewAnalysis()
	}
}
