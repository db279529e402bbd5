package filter

import (
	"regexp"
	"testing"

	"github.com/gardar/menucat/pkg/menu"
)

func TestPriceLine(t *testing.T) {
	lines := []*menu.Line{
		newLine("Pizza Margherita 129,-", 0, 10),
		newLine("Pizza", 20, 30),
		newLine("Cola 2 EUR", 40, 50),
	}
	PriceLine{Weight: 0.5, CurrencySigns: []string{",-", "eur"}}.Apply(lines)

	if lines[0].Analysis.Type != menu.TypePrice || lines[0].Analysis.CategoryConfidence != 0.5 {
		t.Errorf("price line analysis = %+v", lines[0].Analysis)
	}
	if lines[1].Analysis.Type != "" || lines[1].Analysis.CategoryConfidence != 1 {
		t.Errorf("plain line analysis = %+v", lines[1].Analysis)
	}
	// case-insensitive match
	if lines[2].Analysis.Type != menu.TypePrice {
		t.Errorf("EUR not matched: %+v", lines[2].Analysis)
	}
}

func TestLongLine(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"one two three", 1},
		{"one two three four five six", 1},
		{"one two three four five six seven eight", 0.8},
	}
	for _, tt := range tests {
		lines := []*menu.Line{newLine(tt.text, 0, 10)}
		LongLine{Weight: 0.1, DropoffStart: 6}.Apply(lines)
		if got := lines[0].Analysis.CategoryConfidence; !almostEqual(got, tt.want) {
			t.Errorf("%q: confidence %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestContainsDigit(t *testing.T) {
	lines := []*menu.Line{newLine("Menu 2", 0, 10), newLine("Menu", 20, 30), newLine("", 40, 50)}
	ContainsDigit{Weight: 0.5}.Apply(lines)
	want := []float64{0.5, 1, 1}
	for i, c := range confidences(lines) {
		if c != want[i] {
			t.Errorf("line %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestCapitalization(t *testing.T) {
	lines := []*menu.Line{
		newLine("Soups", 0, 10),
		newLine("soups", 20, 30),
		newLine("", 40, 50),
		newLine("Čaje", 60, 70),
		newLine("(Drinks)", 80, 90),
	}
	Capitalization{Weight: 0.5}.Apply(lines)
	want := []float64{1, 0.5, 0.5, 1, 0.5}
	for i, c := range confidences(lines) {
		if c != want[i] {
			t.Errorf("line %d (%q) = %v, want %v", i, lines[i].Text, c, want[i])
		}
	}
}

func TestOCRConfidence(t *testing.T) {
	low := newLine("Wafle blurred", 0, 10)
	low.Words[1].Confidence = menu.ConfidenceLow
	high := newLine("Wafle", 20, 30)
	high.Words[0].Confidence = menu.ConfidenceHigh
	lines := []*menu.Line{low, high, newLine("Vino", 40, 50)}

	OCRConfidence{Weight: 0.3}.Apply(lines)
	want := []float64{0.3, 1, 1}
	for i, c := range confidences(lines) {
		if c != want[i] {
			t.Errorf("line %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestDuplicateText(t *testing.T) {
	lines := []*menu.Line{
		newLine("Soups", 0, 10),
		newLine("Soups!", 20, 30),
		newLine("Desserts", 40, 50),
	}
	DuplicateText{Weight: 0.5}.Apply(lines)
	want := []float64{0.5, 0.5, 1}
	for i, c := range confidences(lines) {
		if c != want[i] {
			t.Errorf("line %d = %v, want %v", i, c, want[i])
		}
	}

	// a custom pattern that keeps punctuation makes them distinct
	lines = []*menu.Line{newLine("Soups", 0, 10), newLine("Soups!", 20, 30)}
	DuplicateText{Weight: 0.5, Pattern: regexp.MustCompile(`\s`)}.Apply(lines)
	for i, c := range confidences(lines) {
		if c != 1 {
			t.Errorf("line %d = %v, want 1", i, c)
		}
	}
}

func TestUnlikelyEnding(t *testing.T) {
	endings := []string{".", ",", ";", "!", "?", ")", "]", "}", "-"}
	lines := []*menu.Line{
		newLine("Served with fries.", 0, 10),
		newLine("Desserts", 20, 30),
		newLine("", 40, 50),
		newLine("Beer (0,5l)", 60, 70),
	}
	UnlikelyEnding{Weight: 0.8, Endings: endings}.Apply(lines)
	want := []float64{0.8, 1, 1, 0.8}
	for i, c := range confidences(lines) {
		if !almostEqual(c, want[i]) {
			t.Errorf("line %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestFontSize(t *testing.T) {
	heights := []float64{10, 10, 10, 10, 20}
	var lines []*menu.Line
	for i, h := range heights {
		top := float64(i) * 100
		lines = append(lines, newLine("Line", top, top+h))
	}
	FontSize{Weight: 0.1, Percentile: 0.8}.Apply(lines)

	// the 80th percentile falls on index 4, height 20
	for i := 0; i < 4; i++ {
		if got := lines[i].Analysis.CategoryConfidence; !almostEqual(got, 0.95) {
			t.Errorf("line %d = %v, want 0.95", i, got)
		}
	}
	if got := lines[4].Analysis.CategoryConfidence; !almostEqual(got, 1) {
		t.Errorf("tallest line = %v, want 1", got)
	}
}

func TestFontSizeReward(t *testing.T) {
	lines := []*menu.Line{
		newLine("a", 0, 10),
		newLine("b", 100, 110),
		newLine("c", 200, 210),
		newLine("D", 300, 330),
	}
	FontSize{Weight: 0.1, Percentile: 0.5}.Apply(lines)
	// reference is 10, the tall line is 2 reference heights away
	if got := lines[3].Analysis.CategoryConfidence; !almostEqual(got, 1.2) {
		t.Errorf("tall line = %v, want 1.2", got)
	}
}

func TestFontSizeDegenerate(t *testing.T) {
	FontSize{Weight: 0.1, Percentile: 0.75}.Apply(nil)

	flat := []*menu.Line{{Text: "flat", Analysis: menu.NewAnalysis()}}
	FontSize{Weight: 0.1, Percentile: 1}.Apply(flat)
	if got := flat[0].Analysis.CategoryConfidence; got != 1 {
		t.Errorf("zero height line = %v, want 1", got)
	}
}

func TestRowAdjacency(t *testing.T) {
	lines := []*menu.Line{
		newLine("Soups", 95, 105),    // center 100
		newLine("59,-", 100, 104),    // center 102
		newLine("Desserts", 190, 210), // center 200
	}
	for i, l := range lines {
		l.ID = i
	}
	pages := menu.PageIndex{0: 1, 1: 1, 2: 1}

	RowAdjacency{Weight: 0.75, Pages: pages}.Apply(lines)
	want := []float64{1, 0.75, 1}
	for i, c := range confidences(lines) {
		if c != want[i] {
			t.Errorf("line %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestRowAdjacencyIgnoresOtherPages(t *testing.T) {
	lines := []*menu.Line{
		newLine("Soups", 95, 105),
		newLine("Desserts", 100, 104),
	}
	for i, l := range lines {
		l.ID = i
	}
	RowAdjacency{Weight: 0.75, Pages: menu.PageIndex{0: 1, 1: 2}}.Apply(lines)
	for i, c := range confidences(lines) {
		if c != 1 {
			t.Errorf("line %d = %v, want 1", i, c)
		}
	}
}

func TestRowAdjacencyKeepsLineOrder(t *testing.T) {
	lines := []*menu.Line{
		newLine("Bottom", 300, 310),
		newLine("Top", 0, 10),
	}
	for i, l := range lines {
		l.ID = i
	}
	RowAdjacency{Weight: 0.75, Pages: menu.PageIndex{0: 1, 1: 1}}.Apply(lines)
	if lines[0].Text != "Bottom" || lines[1].Text != "Top" {
		t.Error("filter reordered its input")
	}
}
