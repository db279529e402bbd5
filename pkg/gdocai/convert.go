package gdocai

import (
	"errors"
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/menucat/pkg/menu"
)

// DefaultLowConfidence is the token confidence (0-1) below which a word
// counts as Low
const DefaultLowConfidence = 0.6

// Options controls how Document AI values are mapped onto the menu model
type Options struct {
	LowConfidence float64 // 0 means DefaultLowConfidence
}

// MenuFromProto converts a Document AI response into a menu. Lines without
// text are skipped; tokens are assigned to the line whose text anchor
// contains theirs.
func MenuFromProto(doc *documentaipb.Document, opts Options) (*menu.Menu, error) {
	if doc == nil {
		return nil, errors.New("no document provided")
	}
	if opts.LowConfidence == 0 {
		opts.LowConfidence = DefaultLowConfidence
	}

	runes := []rune(doc.GetText())
	pages := make([]*menu.Page, 0, len(doc.GetPages()))
	for i, p := range doc.GetPages() {
		page, err := convertPage(p, i+1, runes, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, page)
	}
	return menu.New("Succeeded", pages...), nil
}

func convertPage(p *documentaipb.Document_Page, ordinal int, runes []rune, opts Options) (*menu.Page, error) {
	page := &menu.Page{
		Number:      ordinal,
		Unit:        menu.UnitPixel,
		Orientation: orientation(p.GetLayout()),
	}
	if n := int(p.GetPageNumber()); n > 0 {
		page.Number = n
	}
	dim := p.GetDimension()
	if dim != nil {
		page.Width = float64(dim.GetWidth())
		page.Height = float64(dim.GetHeight())
	}

	for i, l := range p.GetLines() {
		text := cleanText(textFromLayout(l.GetLayout(), runes))
		if text == "" {
			continue
		}
		box, err := boxFromLayout(l.GetLayout(), dim)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		line := &menu.Line{Text: text, Box: box, Analysis: menu.NewAnalysis()}
		for _, token := range p.GetTokens() {
			if !isElementInParent(token.GetLayout(), l.GetLayout()) {
				continue
			}
			word, ok := convertToken(token, dim, runes, opts)
			if ok {
				line.Words = append(line.Words, word)
			}
		}
		page.Lines = append(page.Lines, line)
	}
	return page, nil
}

func convertToken(token *documentaipb.Document_Page_Token, dim *documentaipb.Document_Page_Dimension, runes []rune, opts Options) (menu.Word, bool) {
	layout := token.GetLayout()
	text := cleanText(textFromLayout(layout, runes))
	if text == "" {
		return menu.Word{}, false
	}
	box, err := boxFromLayout(layout, dim)
	if err != nil {
		// a token without geometry still counts for word based filters
		box = menu.BoundingBox{}
	}

	return menu.Word{Text: text, Box: box, Confidence: confidenceLevel(layout.GetConfidence(), opts.LowConfidence)}, true
}

// confidenceLevel maps a token confidence to a level. Zero means the
// processor did not report one.
func confidenceLevel(c float32, low float64) menu.ConfidenceLevel {
	switch {
	case c <= 0:
		return menu.ConfidenceUnknown
	case float64(c) < low:
		return menu.ConfidenceLow
	default:
		return menu.ConfidenceHigh
	}
}

// boxFromLayout reads the bounding polygon of a layout in page pixels.
// Absolute vertices are preferred; normalized vertices are scaled by the
// page dimension. Document AI lists the corners starting top-left, clockwise.
func boxFromLayout(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension) (menu.BoundingBox, error) {
	var box menu.BoundingBox
	poly := layout.GetBoundingPoly()

	if v := poly.GetVertices(); len(v) == 4 {
		for i := range box {
			box[i] = menu.Point{X: float64(v[i].GetX()), Y: float64(v[i].GetY())}
		}
		return box, nil
	}

	if v := poly.GetNormalizedVertices(); len(v) == 4 {
		if dim == nil || dim.GetWidth() <= 0 || dim.GetHeight() <= 0 {
			return box, fmt.Errorf("%w: normalized vertices without page dimension", menu.ErrInvalidBoundingBox)
		}
		w, h := float64(dim.GetWidth()), float64(dim.GetHeight())
		for i := range box {
			box[i] = menu.Point{X: float64(v[i].GetX()) * w, Y: float64(v[i].GetY()) * h}
		}
		return box, nil
	}

	return box, fmt.Errorf("%w: expected 4 vertices", menu.ErrInvalidBoundingBox)
}

// orientation maps the page layout orientation to clockwise degrees
func orientation(layout *documentaipb.Document_Page_Layout) float64 {
	switch layout.GetOrientation() {
	case documentaipb.Document_Page_Layout_PAGE_RIGHT:
		return 90
	case documentaipb.Document_Page_Layout_PAGE_DOWN:
		return 180
	case documentaipb.Document_Page_Layout_PAGE_LEFT:
		return 270
	default:
		return 0
	}
}
