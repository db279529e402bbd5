package annotate

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/gardar/menucat/pkg/menu"
)

// modifyExistingPDF imports pages from an existing PDF and overlays the box layer.
func modifyExistingPDF(inputPDFData []byte, m *menu.Menu, selected []*menu.Line, cfg Config) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "", "")
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(inputPDFData))
	byPage := linesByPage(m, selected)

	for _, page := range m.Pages {
		scale := page.Unit.PointsPerUnit()
		w, h := page.Width*scale, page.Height*scale
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("page %d has no size", page.Number)
		}

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		tpl := importer.ImportPageFromStream(pdf, &rs, page.Number, "/MediaBox")
		importer.UseImportedTemplate(pdf, tpl, 0, 0, w, 0)

		transform := func(x, y float64) (float64, float64) {
			return x * scale, y * scale
		}

		if err := drawLayer(pdf, byPage[page.Number], page.Lines, page.Number, transform, cfg); err != nil {
			return nil, fmt.Errorf("failed to draw layer for page %d: %w", page.Number, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
