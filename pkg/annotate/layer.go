package annotate

import (
	"fmt"
	"strings"
	"unicode"

	"codeberg.org/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gardar/menucat/pkg/menu"
)

// transformFunc maps OCR page coordinates to PDF points
type transformFunc func(x, y float64) (float64, float64)

// drawLayer draws the boxes of one page onto a new layer.
// The pageNum parameter is used to create unique layer names for each page.
// all is only used in debug mode, to outline the lines that were not selected.
func drawLayer(
	pdf *fpdf.Fpdf,
	selected []*menu.Line,
	all []*menu.Line,
	pageNum int,
	transform transformFunc,
	cfg Config,
) error {
	layer := pdf.AddLayer(fmt.Sprintf("%s (Page %d)", cfg.LayerName, pageNum), true)
	pdf.BeginLayer(layer)
	defer pdf.EndLayer()

	pdf.SetFont(cfg.Font.Name, cfg.Font.Style, cfg.Font.Size)
	pdf.SetLineWidth(cfg.LineWidth)

	if cfg.Debug {
		chosen := make(map[int]bool, len(selected))
		for _, line := range selected {
			chosen[line.ID] = true
		}
		pdf.SetDrawColor(debugColor[0], debugColor[1], debugColor[2])
		for _, line := range all {
			if !chosen[line.ID] {
				drawBox(pdf, line.Box, transform)
			}
		}
	}

	pdf.SetDrawColor(cfg.Color[0], cfg.Color[1], cfg.Color[2])
	pdf.SetTextColor(cfg.Color[0], cfg.Color[1], cfg.Color[2])

	approximated := 0
	for _, line := range selected {
		drawBox(pdf, line.Box, transform)
		if cfg.Labels && !drawLabel(pdf, line, transform, cfg.Font) {
			approximated++
		}
	}

	if approximated > 0 {
		cfg.logger().WithFields(logrus.Fields{
			"page":   pageNum,
			"labels": approximated,
		}).Warn("Some labels use characters the core fonts lack, they were written without diacritics")
	}
	return pdf.Error()
}

// drawBox strokes the four corner polygon of a box. Rotated boxes stay rotated.
func drawBox(pdf *fpdf.Fpdf, box menu.BoundingBox, transform transformFunc) {
	points := make([]fpdf.PointType, len(box))
	for i, p := range box {
		x, y := transform(p.X, p.Y)
		points[i] = fpdf.PointType{X: x, Y: y}
	}
	pdf.Polygon(points, "D")
}

// drawLabel writes "text (confidence)" just above the top-left corner of the
// line box. It reports false when the label had to be approximated.
func drawLabel(pdf *fpdf.Fpdf, line *menu.Line, transform transformFunc, font FontConfig) bool {
	label := fmt.Sprintf("%s (%.2f)", line.Text, line.Analysis.CategoryConfidence)
	encoded, ok := encodeLabel(label)

	x, y := transform(line.Box.TopLeft().X, line.Box.TopLeft().Y)
	fontSize, _ := pdf.GetFontSize()
	ascent := fontSize * font.AscentRatio
	baseline := y - (fontSize - ascent)
	if baseline < ascent {
		// no room above the box, write inside it
		baseline = y + ascent
	}
	pdf.Text(x, baseline, encoded)
	return ok
}

// stripMarks removes combining diacritics, so "Přílohy" becomes "Prilohy"
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// encodeLabel converts s to Windows-1252, the encoding of the core fonts.
// Characters outside it lose their diacritics, and whatever still does not
// fit is written as '?'. ok is false when s was changed.
func encodeLabel(s string) (string, bool) {
	enc := charmap.Windows1252.NewEncoder()
	if out, err := enc.String(s); err == nil {
		return out, true
	}

	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}
	var sb strings.Builder
	for _, r := range plain {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		sb.WriteByte(b)
	}
	return sb.String(), false
}
