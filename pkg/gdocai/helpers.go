package gdocai

import (
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"
)

// ToJSON converts a Document AI response to a pretty-printed JSON string
func ToJSON(doc *documentaipb.Document) (string, error) {
	jsonData, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// ParseJSON reads a Document AI response previously saved with ToJSON or
// downloaded from the Document AI console. Unknown fields are ignored.
func ParseJSON(data []byte) (*documentaipb.Document, error) {
	doc := &documentaipb.Document{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse Document AI JSON: %w", err)
	}
	return doc, nil
}
