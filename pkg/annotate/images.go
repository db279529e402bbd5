package annotate

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageExtensions are the source image types a menu photo or scan can have
var ImageExtensions = []string{".jpeg", ".jpg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

// pageImage is an image ready to be embedded by fpdf
type pageImage struct {
	data          []byte
	format        string // fpdf image type: PNG, JPEG or GIF
	width, height int
}

// loadImage detects the image type and re-encodes formats fpdf cannot
// embed (BMP, TIFF, WebP) as PNG
func loadImage(data []byte) (pageImage, error) {
	if len(data) == 0 {
		return pageImage{}, fmt.Errorf("image is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return pageImage{}, fmt.Errorf("failed to decode image config: %w", err)
	}

	img := pageImage{data: data, format: strings.ToUpper(format), width: cfg.Width, height: cfg.Height}
	switch img.format {
	case "PNG", "JPEG", "GIF":
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return pageImage{}, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return pageImage{}, fmt.Errorf("failed to convert %s image to PNG: %w", format, err)
	}
	img.data = buf.Bytes()
	img.format = "PNG"
	return img, nil
}
