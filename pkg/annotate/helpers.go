package annotate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// normalizeCoords rescales OCR coordinates to PDF coordinates.
func normalizeCoords(x, y, ocrW, ocrH, pdfW, pdfH float64) (float64, float64) {
	nx := (x / ocrW) * pdfW
	ny := (y / ocrH) * pdfH
	return nx, ny
}

func unescapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\(", "(")
	s = strings.ReplaceAll(s, "\\)", ")")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}

func decodeUTF16BE(b []byte) (string, error) {
	if len(b) < 2 || b[0] != 0xFE || b[1] != 0xFF {
		return "", fmt.Errorf("no BOM detected, cannot confirm UTF-16BE")
	}
	b = b[2:]
	var runes []rune
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes), nil
}

// dumpPDFStructure logs the first N bytes of the PDF plus any /OCG layer
// reference at debug level.
func dumpPDFStructure(pdfData []byte, byteCount int, logger logrus.FieldLogger) {
	if byteCount > len(pdfData) {
		byteCount = len(pdfData)
	}
	logger.WithField("bytes", byteCount).Debugf("PDF structure:\n%s", pdfData[:byteCount])

	ocgIndex := bytes.Index(pdfData, []byte("/OCG"))
	if ocgIndex >= 0 {
		start := ocgIndex - 20
		if start < 0 {
			start = 0
		}
		end := ocgIndex + 100
		if end > len(pdfData) {
			end = len(pdfData)
		}
		logger.Debugf("OCG context:\n%s", pdfData[start:end])
	}
}
