package hocr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/menucat/pkg/menu"
)

// DefaultLowConfidence is the x_wconf value below which a word counts as Low
const DefaultLowConfidence = 60

// ErrNoPages is returned for documents without any ocr_page element
var ErrNoPages = errors.New("no ocr_page elements found in hOCR data")

// lineClasses are the hOCR classes that hold one line of text
var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// Options controls how hOCR values are mapped onto the menu model
type Options struct {
	LowConfidence float64 // x_wconf threshold, 0 means DefaultLowConfidence
}

// Parse converts raw hOCR data into a menu. Pages keep document order and
// lines keep the order they appear in within each page.
func Parse(data []byte, opts Options) (*menu.Menu, error) {
	if opts.LowConfidence == 0 {
		opts.LowConfidence = DefaultLowConfidence
	}

	decoded, err := decode(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	var pageNodes []*html.Node
	collect(doc, []string{"ocr_page"}, &pageNodes)
	if len(pageNodes) == 0 {
		return nil, ErrNoPages
	}

	pages := make([]*menu.Page, 0, len(pageNodes))
	for i, n := range pageNodes {
		page, err := processPage(n, i+1, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, page)
	}
	return menu.New("Succeeded", pages...), nil
}

// decode converts Latin-1 and Windows-1252 documents to UTF-8. Anything
// that does not declare a charset, or declares UTF-8, is passed through.
func decode(data []byte) ([]byte, error) {
	encoding := declaredCharset(data)
	var cm *charmap.Charmap
	switch encoding {
	case "", "utf-8", "utf8":
		return data, nil
	case "iso-8859-1", "latin1", "latin-1":
		cm = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		// 0x80-0x9f hold printable characters such as the euro sign
		cm = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported hOCR charset %q", encoding)
	}
	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", encoding, err)
	}
	return decoded, nil
}

// declaredCharset returns the lowercased value of the first charset= in the
// document head, or "" when there is none.
func declaredCharset(data []byte) string {
	content := string(data)
	start := strings.Index(strings.ToLower(content), "charset=")
	if start < 0 {
		return ""
	}
	rest := content[start+len("charset="):]
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func processPage(n *html.Node, number int, opts Options) (*menu.Page, error) {
	page := &menu.Page{Number: number, Unit: menu.UnitPixel}

	props := ParseTitle(getAttrVal(n, "title"))
	box, ok, err := boxFromTitle(props)
	if err != nil {
		return nil, err
	}
	if ok {
		x, y, w, h := box.Rect()
		page.Width, page.Height = x+w, y+h
	}
	if angle, ok := props["textangle"]; ok && len(angle) > 0 {
		if v, err := strconv.ParseFloat(angle[0], 64); err == nil {
			page.Orientation = v
		}
	}

	var lineNodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, lineClasses, &lineNodes)
	}

	for i, ln := range lineNodes {
		line, err := processLine(ln, opts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if line != nil {
			page.Lines = append(page.Lines, line)
		}
	}
	return page, nil
}

// processLine converts one line element. Lines without any text are
// dropped and reported as nil.
func processLine(n *html.Node, opts Options) (*menu.Line, error) {
	box, ok, err := boxFromTitle(ParseTitle(getAttrVal(n, "title")))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: line without bbox", menu.ErrInvalidBoundingBox)
	}

	line := &menu.Line{Box: box, Analysis: menu.NewAnalysis()}

	var wordNodes []*html.Node
	collect(n, []string{"ocrx_word"}, &wordNodes)

	texts := make([]string, 0, len(wordNodes))
	for i, wn := range wordNodes {
		text := extractTextContent(wn)
		if text == "" {
			continue
		}
		props := ParseTitle(getAttrVal(wn, "title"))
		wbox, ok, err := boxFromTitle(props)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		if !ok {
			wbox = box
		}
		line.Words = append(line.Words, menu.Word{
			Text:       text,
			Box:        wbox,
			Confidence: wordConfidence(props, opts.LowConfidence),
		})
		texts = append(texts, text)
	}

	if len(wordNodes) == 0 {
		line.Text = extractTextContent(n)
	} else {
		line.Text = strings.Join(texts, " ")
	}
	if line.Text == "" {
		return nil, nil
	}
	return line, nil
}

// collect appends n or its descendants carrying one of classes to out.
// It does not descend into a matching element.
func collect(n *html.Node, classes []string, out *[]*html.Node) {
	if n.Type == html.ElementNode && hasClass(n, classes) {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, classes, out)
	}
}

func hasClass(n *html.Node, classes []string) bool {
	for _, class := range strings.Fields(getAttrVal(n, "class")) {
		for _, want := range classes {
			if class == want {
				return true
			}
		}
	}
	return false
}

// extractTextContent gets all text from a node and its children with
// whitespace runs collapsed
func extractTextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Get the value of a specific attribute from a node
func getAttrVal(n *html.Node, attrName string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}
