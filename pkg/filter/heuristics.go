package filter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gardar/menucat/pkg/menu"
)

// PriceLine penalizes lines containing a currency token and tags them as prices
type PriceLine struct {
	Weight        float64
	CurrencySigns []string // Matched case-insensitively anywhere in the text
}

func (PriceLine) Name() string { return "price" }

func (f PriceLine) Apply(lines []*menu.Line) {
	signs := make([]string, 0, len(f.CurrencySigns))
	for _, sign := range f.CurrencySigns {
		if sign != "" {
			signs = append(signs, strings.ToLower(sign))
		}
	}

	for _, line := range lines {
		text := strings.ToLower(line.Text)
		for _, sign := range signs {
			if strings.Contains(text, sign) {
				line.Analysis.Type = menu.TypePrice
				line.Analysis.CategoryConfidence *= f.Weight
				break
			}
		}
	}
}

// LongLine penalizes every word past DropoffStart. The multiplier can go
// negative for very long lines; the pipeline clamps it.
type LongLine struct {
	Weight       float64
	DropoffStart int
}

func (LongLine) Name() string { return "long_line" }

func (f LongLine) Apply(lines []*menu.Line) {
	for _, line := range lines {
		if n := len(line.Words); n > f.DropoffStart {
			line.Analysis.CategoryConfidence *= 1 - f.Weight*float64(n-f.DropoffStart)
		}
	}
}

// ContainsDigit penalizes lines with any digit in them
type ContainsDigit struct {
	Weight float64
}

func (ContainsDigit) Name() string { return "contains_digit" }

func (f ContainsDigit) Apply(lines []*menu.Line) {
	for _, line := range lines {
		if strings.IndexFunc(line.Text, unicode.IsDigit) >= 0 {
			line.Analysis.CategoryConfidence *= f.Weight
		}
	}
}

// Capitalization penalizes lines whose first character is not uppercase.
// Empty text counts as not capitalized.
type Capitalization struct {
	Weight float64
}

func (Capitalization) Name() string { return "capitalization" }

func (f Capitalization) Apply(lines []*menu.Line) {
	for _, line := range lines {
		first, _ := utf8.DecodeRuneInString(line.Text)
		if line.Text == "" || !unicode.IsUpper(first) {
			line.Analysis.CategoryConfidence *= f.Weight
		}
	}
}

// OCRConfidence penalizes lines with at least one low confidence word
type OCRConfidence struct {
	Weight float64
}

func (OCRConfidence) Name() string { return "ocr_confidence" }

func (f OCRConfidence) Apply(lines []*menu.Line) {
	for _, line := range lines {
		for _, word := range line.Words {
			if word.Confidence == menu.ConfidenceLow {
				line.Analysis.CategoryConfidence *= f.Weight
				break
			}
		}
	}
}

// DefaultDuplicatePattern strips everything but ASCII letters, digits and whitespace
var DefaultDuplicatePattern = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// DuplicateText penalizes lines whose normalized text occurs more than once.
// Normalization deletes every match of Pattern.
type DuplicateText struct {
	Weight  float64
	Pattern *regexp.Regexp // nil means DefaultDuplicatePattern
}

func (DuplicateText) Name() string { return "duplicate" }

func (f DuplicateText) Apply(lines []*menu.Line) {
	pattern := f.Pattern
	if pattern == nil {
		pattern = DefaultDuplicatePattern
	}

	normalized := make([]string, len(lines))
	counts := make(map[string]int, len(lines))
	for i, line := range lines {
		normalized[i] = pattern.ReplaceAllString(line.Text, "")
		counts[normalized[i]]++
	}

	for i, line := range lines {
		if counts[normalized[i]] > 1 {
			line.Analysis.CategoryConfidence *= f.Weight
		}
	}
}

// UnlikelyEnding penalizes lines ending in punctuation headers rarely end with.
// Empty text never matches.
type UnlikelyEnding struct {
	Weight  float64
	Endings []string
}

func (UnlikelyEnding) Name() string { return "ending" }

func (f UnlikelyEnding) Apply(lines []*menu.Line) {
	endings := make(map[string]bool, len(f.Endings))
	for _, e := range f.Endings {
		endings[e] = true
	}

	for _, line := range lines {
		if line.Text == "" {
			continue
		}
		last, _ := utf8.DecodeLastRuneInString(line.Text)
		if endings[string(last)] {
			line.Analysis.CategoryConfidence *= f.Weight
		}
	}
}

// FontSize rewards lines taller than the height at Percentile and penalizes
// the rest, proportionally to their relative distance from it.
type FontSize struct {
	Weight     float64
	Percentile float64
}

func (FontSize) Name() string { return "font_size" }

func (f FontSize) Apply(lines []*menu.Line) {
	if len(lines) == 0 {
		return
	}

	sizes := make([]float64, len(lines))
	for i, line := range lines {
		sizes[i] = line.Box.Height()
	}

	sorted := append([]float64(nil), sizes...)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * f.Percentile)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	reference := sorted[idx]
	if reference <= 0 {
		// relative distance is undefined
		return
	}

	for i, line := range lines {
		size := sizes[i]
		distance := abs(size-reference) / reference
		if size > reference {
			line.Analysis.CategoryConfidence *= 1 + f.Weight*distance
		} else {
			line.Analysis.CategoryConfidence *= 1 - f.Weight*distance
		}
	}
}

// RowAdjacency penalizes lines sharing a row with other text on the same
// page. Lines are ordered by page and vertical center; a line is penalized
// once for each direct neighbour whose vertical span contains its center.
type RowAdjacency struct {
	Weight float64
	Pages  menu.PageIndex // Line ID to page number
}

func (RowAdjacency) Name() string { return "row_adjacency" }

func (f RowAdjacency) Apply(lines []*menu.Line) {
	type placed struct {
		line   *menu.Line
		center float64
		page   int
	}

	rows := make([]placed, len(lines))
	for i, line := range lines {
		rows[i] = placed{line: line, center: line.Box.CenterY(), page: f.Pages[line.ID]}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].page != rows[j].page {
			return rows[i].page < rows[j].page
		}
		return rows[i].center < rows[j].center
	})

	for i, row := range rows {
		if i > 0 {
			prev := rows[i-1]
			if prev.page == row.page && prev.line.Box.SpansY(row.center) {
				row.line.Analysis.CategoryConfidence *= f.Weight
			}
		}
		if i < len(rows)-1 {
			next := rows[i+1]
			if next.page == row.page && next.line.Box.SpansY(row.center) {
				row.line.Analysis.CategoryConfidence *= f.Weight
			}
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
