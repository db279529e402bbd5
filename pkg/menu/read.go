package menu

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// readResult mirrors the OCR JSON document
type readResult struct {
	Status             string     `json:"status"`
	RecognitionResults []readPage `json:"recognitionResults"`
}

type readPage struct {
	Page                 int        `json:"page"`
	ClockwiseOrientation float64    `json:"clockwiseOrientation"`
	Width                float64    `json:"width"`
	Height               float64    `json:"height"`
	Unit                 string     `json:"unit"`
	Lines                []readLine `json:"lines"`
}

type readLine struct {
	Text        string     `json:"text"`
	BoundingBox []float64  `json:"boundingBox"`
	Words       []readWord `json:"words"`
}

type readWord struct {
	Text        string    `json:"text"`
	BoundingBox []float64 `json:"boundingBox"`
	Confidence  string    `json:"confidence,omitempty"`
}

// ReadFile loads an OCR JSON file from disk.
func ReadFile(path string) (*Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse converts OCR JSON (status plus recognitionResults) into a Menu.
func Parse(data []byte) (*Menu, error) {
	var raw readResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode OCR JSON: %w", err)
	}
	if raw.RecognitionResults == nil {
		return nil, fmt.Errorf("OCR JSON has no recognitionResults")
	}

	pages := make([]*Page, 0, len(raw.RecognitionResults))
	for pi, rp := range raw.RecognitionResults {
		page, err := convertPage(rp)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pi+1, err)
		}
		pages = append(pages, page)
	}
	return New(raw.Status, pages...), nil
}

func convertPage(rp readPage) (*Page, error) {
	unit, err := ParseUnit(rp.Unit)
	if err != nil {
		return nil, err
	}
	page := &Page{
		Number:      rp.Page,
		Orientation: rp.ClockwiseOrientation,
		Width:       rp.Width,
		Height:      rp.Height,
		Unit:        unit,
		Lines:       make([]*Line, 0, len(rp.Lines)),
	}

	for li, rl := range rp.Lines {
		box, err := NewBoundingBox(rl.BoundingBox)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", li+1, err)
		}

		words := make([]Word, 0, len(rl.Words))
		for wi, rw := range rl.Words {
			wbox, err := NewBoundingBox(rw.BoundingBox)
			if err != nil {
				return nil, fmt.Errorf("line %d word %d: %w", li+1, wi+1, err)
			}
			words = append(words, Word{
				Text:       rw.Text,
				Box:        wbox,
				Confidence: ConfidenceLevel(rw.Confidence),
			})
		}

		// Older OCR output leaves the line text out
		text := rl.Text
		if text == "" && len(words) > 0 {
			parts := make([]string, len(words))
			for i, w := range words {
				parts[i] = w.Text
			}
			text = strings.Join(parts, " ")
		}

		page.Lines = append(page.Lines, &Line{
			Text:     text,
			Box:      box,
			Words:    words,
			Analysis: NewAnalysis(),
		})
	}
	return page, nil
}
