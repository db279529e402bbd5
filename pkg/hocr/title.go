package hocr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gardar/menucat/pkg/menu"
)

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// boxFromTitle extracts the bbox property of a title as a four corner box.
// ok is false when the title has no bbox.
func boxFromTitle(props map[string][]string) (box menu.BoundingBox, ok bool, err error) {
	values, found := props["bbox"]
	if !found {
		return box, false, nil
	}
	if len(values) != 4 {
		return box, false, fmt.Errorf("%w: bbox has %d values", menu.ErrInvalidBoundingBox, len(values))
	}

	var c [4]float64
	for i, v := range values {
		c[i], err = strconv.ParseFloat(v, 64)
		if err != nil {
			return box, false, fmt.Errorf("%w: bbox value %q", menu.ErrInvalidBoundingBox, v)
		}
	}
	return menu.RectBox(c[0], c[1], c[2], c[3]), true, nil
}

// wordConfidence maps x_wconf (0-100) onto a confidence level
func wordConfidence(props map[string][]string, low float64) menu.ConfidenceLevel {
	values, ok := props["x_wconf"]
	if !ok || len(values) == 0 {
		return menu.ConfidenceUnknown
	}
	conf, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return menu.ConfidenceUnknown
	}
	if conf < low {
		return menu.ConfidenceLow
	}
	return menu.ConfidenceHigh
}
