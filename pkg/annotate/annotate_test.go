package annotate

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/image/bmp"

	"github.com/gardar/menucat/pkg/menu"
)

func testImage(t *testing.T, w, h int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodePNG(buf *bytes.Buffer, img image.Image) error { return png.Encode(buf, img) }
func encodeBMP(buf *bytes.Buffer, img image.Image) error { return bmp.Encode(buf, img) }

// testMenu has one pixel page of the given size with a header and an item
func testMenu(w, h float64, header string) (*menu.Menu, []*menu.Line) {
	page := &menu.Page{
		Number: 1,
		Width:  w,
		Height: h,
		Unit:   menu.UnitPixel,
		Lines: []*menu.Line{
			{Text: header, Box: menu.RectBox(10, 10, 80, 30), Analysis: menu.Analysis{CategoryConfidence: 0.92}},
			{Text: "Guláš 59,-", Box: menu.RectBox(10, 40, 120, 55), Analysis: menu.Analysis{CategoryConfidence: 0.1}},
		},
	}
	m := menu.New("Succeeded", page)
	return m, []*menu.Line{page.Lines[0]}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger, _ = test.NewNullLogger()
	return cfg
}

func blankPDF(t *testing.T, w, h float64) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(20, 20, "Polevky")
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAssembleWithBoxes(t *testing.T) {
	m, selected := testMenu(200, 100, "Polévky")
	img := testImage(t, 400, 200, encodePNG)

	cfg := testConfig()
	cfg.Debug = true
	out, err := AssembleWithBoxes([][]byte{img}, m, selected, cfg)
	if err != nil {
		t.Fatalf("AssembleWithBoxes: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", out[:10])
	}

	layers, err := DetectLayers(out, cfg.LayerName)
	if err != nil {
		t.Fatal(err)
	}
	if !layers.HasLayer {
		t.Errorf("layer not found, got %q", layers.Layers)
	}
}

func TestAssembleConvertsBMP(t *testing.T) {
	data := testImage(t, 40, 20, encodeBMP)
	img, err := loadImage(data)
	if err != nil {
		t.Fatalf("loadImage: %v", err)
	}
	if img.format != "PNG" || img.width != 40 || img.height != 20 {
		t.Errorf("converted image = %s %dx%d", img.format, img.width, img.height)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(img.data)); err != nil {
		t.Errorf("converted data is not PNG: %v", err)
	}

	m, selected := testMenu(40, 20, "Polévky")
	if _, err := AssembleWithBoxes([][]byte{data}, m, selected, testConfig()); err != nil {
		t.Errorf("AssembleWithBoxes: %v", err)
	}
}

func TestAssembleErrors(t *testing.T) {
	m, selected := testMenu(200, 100, "Polévky")
	cfg := testConfig()

	if _, err := AssembleWithBoxes(nil, m, selected, cfg); err == nil {
		t.Error("expected error without images")
	}
	if _, err := AssembleWithBoxes([][]byte{[]byte("not an image")}, m, selected, cfg); err == nil {
		t.Error("expected error for invalid image")
	}
	if _, err := AssembleWithBoxes([][]byte{testImage(t, 10, 10, encodePNG)}, nil, nil, cfg); err == nil {
		t.Error("expected error for nil menu")
	}

}

func TestAssembleCzechHeader(t *testing.T) {
	m, selected := testMenu(200, 100, "Přílohy")
	logger, hook := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Logger = logger

	out, err := AssembleWithBoxes([][]byte{testImage(t, 200, 100, encodePNG)}, m, selected, cfg)
	if err != nil {
		t.Fatalf("AssembleWithBoxes: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("got %d warnings, want 1", warnings)
	}

	m, selected = testMenu(200, 100, "Пельмени")
	if _, err := AssembleWithBoxes([][]byte{testImage(t, 200, 100, encodePNG)}, m, selected, cfg); err != nil {
		t.Errorf("Cyrillic header: %v", err)
	}
	cfg.Labels = false
	if _, err := AssembleWithBoxes([][]byte{testImage(t, 200, 100, encodePNG)}, m, selected, cfg); err != nil {
		t.Errorf("unlabelled boxes failed: %v", err)
	}
}

func TestEncodeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Polévky (0.92)", "Pol\xe9vky (0.92)", true},
		{"Pizza 12 €", "Pizza 12 \x80", true},
		{"Čaje", "Caje", false},
		{"Přílohy 25 Kč", "Prilohy 25 Kc", false},
		{"Чай", "???", false},
	}
	for _, tt := range tests {
		got, ok := encodeLabel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("encodeLabel(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnnotate(t *testing.T) {
	src := blankPDF(t, 200, 100)
	m, selected := testMenu(200, 100, "Polévky")
	cfg := testConfig()

	out, err := Annotate(src, m, selected, cfg)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}

	if _, err := Annotate(out, m, selected, cfg); !errors.Is(err, ErrAlreadyAnnotated) {
		t.Errorf("second run err = %v, want ErrAlreadyAnnotated", err)
	}

	cfg.Force = true
	if _, err := Annotate(out, m, selected, cfg); err != nil {
		t.Errorf("forced run: %v", err)
	}
}

func TestAnnotateErrors(t *testing.T) {
	m, selected := testMenu(200, 100, "Polévky")
	cfg := testConfig()

	if _, err := Annotate(nil, m, selected, cfg); err == nil {
		t.Error("expected error for empty PDF")
	}

	m.Pages[0].Width = 0
	if _, err := Annotate(blankPDF(t, 200, 100), m, selected, cfg); err == nil {
		t.Error("expected error for page without size")
	}

	cfg.LayerName = ""
	if _, err := Annotate(blankPDF(t, 200, 100), m, selected, cfg); err == nil {
		t.Error("expected error for empty layer name")
	}
}

func TestDetectLayers(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<</Type /OCG /Name (Menu Categories \\(Page 2\\))>>\nendobj\n" +
		"2 0 obj\n<</Type /OCG /Name (Background)>>\nendobj\n")

	res, err := DetectLayers(pdf, "Menu Categories")
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasLayer {
		t.Errorf("layer not detected in %q", res.Layers)
	}
	if len(res.Layers) != 2 {
		t.Errorf("layers = %q", res.Layers)
	}

	res, err = DetectLayers(pdf, "OCR Text")
	if err != nil || res.HasLayer {
		t.Errorf("unexpected match %+v, %v", res, err)
	}

	if _, err := DetectLayers(nil, "Menu Categories"); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestNormalizeCoords(t *testing.T) {
	x, y := normalizeCoords(50, 25, 100, 50, 400, 200)
	if x != 200 || y != 100 {
		t.Errorf("normalizeCoords = %v, %v", x, y)
	}
}
