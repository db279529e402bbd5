package annotate

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gardar/menucat/pkg/menu"
)

// createPDFFromImages builds a new PDF from page images with their boxes.
// This function assumes inputs have been validated by the caller.
func createPDFFromImages(images []pageImage, m *menu.Menu, selected []*menu.Line, cfg Config) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	byPage := linesByPage(m, selected)

	for i, page := range m.Pages {
		img := images[i]
		w, h := float64(img.width), float64(img.height)

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		imageName := fmt.Sprintf("img%d", i)
		opts := fpdf.ImageOptions{ReadDpi: false, ImageType: img.format}
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(img.data))
		pdf.ImageOptions(imageName, 0, 0, w, h, false, opts, 0, "")

		// OCR coordinates are relative to the OCR page size, which may
		// differ from the image resolution
		ocrW, ocrH := page.Width, page.Height
		if ocrW <= 0 || ocrH <= 0 {
			ocrW, ocrH = w, h
		}
		transform := func(x, y float64) (float64, float64) {
			return normalizeCoords(x, y, ocrW, ocrH, w, h)
		}

		if err := drawLayer(pdf, byPage[page.Number], page.Lines, page.Number, transform, cfg); err != nil {
			return nil, fmt.Errorf("failed to draw layer for page %d: %w", page.Number, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
