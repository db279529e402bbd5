// Package annotate draws the bounding boxes of selected menu lines into a PDF.
//
// The boxes go onto an optional content layer per page, so PDF readers that
// support layers can toggle them. Two inputs are supported:
//
// - Annotate: an existing PDF, whose pages are imported unchanged and
// overlaid. OCR coordinates are converted to points with the unit of each
// OCR page (inch, mm or pixel).
// - AssembleWithBoxes: one image per page, assembled into a new PDF with
// the page size of the image. OCR coordinates are rescaled from the OCR page
// size to the image size.
//
// A PDF that already carries the layer is refused unless Config.Force is set.
package annotate

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gardar/menucat/pkg/menu"
)

// ErrAlreadyAnnotated is returned when the input PDF already has the layer
var ErrAlreadyAnnotated = errors.New("file already has a category layer")

// Annotate takes an existing PDF and draws the selected lines of m onto it.
// Page N of the menu is drawn onto page N of the PDF.
func Annotate(pdfData []byte, m *menu.Menu, selected []*menu.Line, cfg Config) ([]byte, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("input PDF data is empty")
	}
	if err := validate(m, cfg); err != nil {
		return nil, err
	}
	logger := cfg.logger()

	if cfg.Debug {
		dumpPDFStructure(pdfData, 2000, logger)
	}

	layers, err := DetectLayers(pdfData, cfg.LayerName)
	if err != nil {
		return nil, fmt.Errorf("layer detection failed: %w", err)
	}
	if len(layers.Layers) > 0 {
		logger.WithField("layers", layers.Layers).Info("Existing layers detected in PDF")
	}
	if layers.HasLayer && !cfg.Force {
		return nil, fmt.Errorf("%w (layer '%s'), use -force to reapply", ErrAlreadyAnnotated, layers.LayerName)
	} else if layers.HasLayer {
		logger.Warn("File already has a category layer; reapplying due to -force will draw the boxes twice")
	}

	out, err := modifyExistingPDF(pdfData, m, selected, cfg)
	if err != nil {
		return nil, fmt.Errorf("error modifying existing PDF: %w", err)
	}
	return out, nil
}

// AssembleWithBoxes creates a PDF from page images and draws the selected
// lines of m onto it. images[i] is the picture of page i+1.
func AssembleWithBoxes(images [][]byte, m *menu.Menu, selected []*menu.Line, cfg Config) ([]byte, error) {
	if err := validate(m, cfg); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	if len(images) < len(m.Pages) {
		return nil, fmt.Errorf("not enough images (%d) for menu pages (%d)", len(images), len(m.Pages))
	}

	pages := make([]pageImage, len(m.Pages))
	for i := range m.Pages {
		img, err := loadImage(images[i])
		if err != nil {
			return nil, fmt.Errorf("image %d has invalid format: %w", i+1, err)
		}
		cfg.logger().WithFields(logrus.Fields{
			"page":   i + 1,
			"format": img.format,
			"width":  img.width,
			"height": img.height,
		}).Debug("Loaded page image")
		pages[i] = img
	}

	out, err := createPDFFromImages(pages, m, selected, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating PDF from images: %w", err)
	}
	return out, nil
}

func validate(m *menu.Menu, cfg Config) error {
	if m == nil || len(m.Pages) == 0 {
		return fmt.Errorf("menu contains no pages")
	}
	if cfg.LayerName == "" {
		return fmt.Errorf("layer name must not be empty")
	}
	return nil
}

// linesByPage groups lines by the number of the page that owns them,
// keeping their relative order
func linesByPage(m *menu.Menu, lines []*menu.Line) map[int][]*menu.Line {
	index := m.PageIndex()
	out := make(map[int][]*menu.Line)
	for _, line := range lines {
		if number, ok := index[line.ID]; ok {
			out[number] = append(out[number], line)
		}
	}
	return out
}
