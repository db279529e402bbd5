// Package gdocai reads menus through Google Document AI.
//
// A PDF or image is sent to a Document AI OCR processor and the returned
// Document proto is converted into the menu OCR model: one menu.Page per
// proto page, one menu.Line per detected line and one menu.Word per token
// inside it. Coordinates are kept in page pixels.
//
// Main Functions:
//
// - ProcessDocument: Sends a document to Google Document AI for processing
// - MenuFromProto: Converts a Document AI response into a menu
// - ReadMenu: Both of the above in one call
// - ParseJSON / ToJSON: Load and dump Document AI responses, so a processed
// document can be scored again without another API call
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS environment variable
package gdocai

import (
	"context"
	"fmt"

	"github.com/gardar/menucat/pkg/menu"
)

// ReadMenu processes data with Document AI and converts the response.
func ReadMenu(ctx context.Context, data []byte, mimeType string, cfg *Config, opts Options) (*menu.Menu, error) {
	doc, err := ProcessDocument(ctx, data, mimeType, cfg)
	if err != nil {
		return nil, err
	}

	m, err := MenuFromProto(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	return m, nil
}
