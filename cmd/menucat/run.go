package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/sirupsen/logrus"

	"github.com/gardar/menucat/pkg/annotate"
	"github.com/gardar/menucat/pkg/config"
	"github.com/gardar/menucat/pkg/filter"
	"github.com/gardar/menucat/pkg/gdocai"
	"github.com/gardar/menucat/pkg/hocr"
	"github.com/gardar/menucat/pkg/menu"
	"github.com/gardar/menucat/pkg/report"
)

// inputKind is how an input file is turned into a menu
type inputKind int

const (
	kindUnknown inputKind = iota
	kindOCRJSON
	kindDocAIJSON
	kindHOCR
	kindDocument // raw PDF or image for Document AI
)

const docAISuffix = ".docai.json"

// documentMimeTypes are the raw document types Document AI accepts
var documentMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

func kindOf(path string) inputKind {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, docAISuffix) {
		return kindDocAIJSON
	}
	ext := filepath.Ext(lower)
	switch ext {
	case ".json":
		return kindOCRJSON
	case ".hocr", ".html", ".htm":
		return kindHOCR
	}
	if _, ok := documentMimeTypes[ext]; ok {
		return kindDocument
	}
	return kindUnknown
}

// baseName strips the directory and the input extension
func baseName(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(base), docAISuffix) {
		return base[:len(base)-len(docAISuffix)]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// collectInputs returns path itself, or the OCR result files of a directory.
// Raw documents in a directory are treated as annotation sources, not inputs.
func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if kindOf(path) == kindUnknown {
			return nil, fmt.Errorf("unsupported input type: %s", path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var inputs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch kindOf(e.Name()) {
		case kindOCRJSON, kindDocAIJSON, kindHOCR:
			inputs = append(inputs, filepath.Join(path, e.Name()))
		}
	}
	return inputs, nil
}

// findSource looks next to the input for a PDF or image with the same base
// name. It returns "" when there is none.
func findSource(input string) string {
	if kindOf(input) == kindDocument {
		return input
	}
	dir, name := filepath.Dir(input), baseName(input)
	exts := append([]string{".pdf"}, annotate.ImageExtensions...)
	for _, ext := range exts {
		for _, candidate := range []string{ext, strings.ToUpper(ext)} {
			path := filepath.Join(dir, name+candidate)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

type options struct {
	OutputDir string
	Source    string
	Debug     bool
	Force     bool
	Overwrite bool
	DocAI     *gdocai.Config
}

type app struct {
	cfg        config.Config
	opts       options
	classifier *filter.Classifier
	logger     logrus.FieldLogger
}

func newApp(cfg config.Config, opts options, logger logrus.FieldLogger) (*app, error) {
	a := &app{cfg: cfg, opts: opts, logger: logger}

	model, err := filter.NewOpenAIModel(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	if model != nil {
		a.classifier = filter.NewClassifier(model, cfg.Classifier, logger)
	} else {
		logger.Warn("No API key configured, the AI based filter will be skipped")
	}
	return a, nil
}

// process scores one input file and writes its report and annotated PDF
func (a *app) process(ctx context.Context, input string) error {
	logger := a.logger.WithField("input", filepath.Base(input))
	name := baseName(input)

	m, err := a.readMenu(ctx, input, name)
	if err != nil {
		return err
	}

	pipeline, err := filter.ForMenu(a.cfg, m, a.classifier, logger)
	if err != nil {
		return err
	}
	selected := pipeline.ScoreAndSelect(ctx, m, a.cfg.Threshold)
	logger.WithFields(logrus.Fields{
		"pages":    len(m.Pages),
		"lines":    len(m.Lines()),
		"selected": len(selected),
	}).Info("Scored menu")
	for _, line := range selected {
		logger.WithFields(logrus.Fields{
			"text":       line.Text,
			"confidence": line.Analysis.CategoryConfidence,
		}).Debug("Category")
	}

	csvPath := filepath.Join(a.opts.OutputDir, name+".csv")
	if err := report.WriteCSVFile(csvPath, selected, a.opts.Overwrite); err != nil {
		return err
	}
	if a.classifier != nil {
		logger.Info("Confidences include the language model and are only meaningful relative to each other")
	}
	logger.WithField("path", csvPath).Info("Report saved")

	source := a.opts.Source
	if source == "" {
		source = findSource(input)
	}
	if source == "" {
		logger.Warn("No source PDF or image found next to the input, skipping PDF output")
		return nil
	}

	pdfData, err := a.render(source, m, selected, logger)
	if err != nil {
		return fmt.Errorf("failed to annotate %s: %w", source, err)
	}
	pdfPath := filepath.Join(a.opts.OutputDir, name+".pdf")
	if err := writeOutput(pdfPath, pdfData, a.opts.Overwrite); err != nil {
		return err
	}
	logger.WithField("path", pdfPath).Info("Annotated PDF saved")
	return nil
}

func (a *app) readMenu(ctx context.Context, input, name string) (*menu.Menu, error) {
	switch kindOf(input) {
	case kindOCRJSON:
		return menu.ReadFile(input)

	case kindHOCR:
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return hocr.Parse(data, hocr.Options{})

	case kindDocAIJSON:
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		doc, err := gdocai.ParseJSON(data)
		if err != nil {
			return nil, err
		}
		return gdocai.MenuFromProto(doc, gdocai.Options{})

	case kindDocument:
		if a.opts.DocAI == nil {
			return nil, errors.New("raw documents need Document AI settings, use -docai-config")
		}
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		mimeType := documentMimeTypes[strings.ToLower(filepath.Ext(input))]
		a.logger.WithField("input", filepath.Base(input)).Info("Sending document to Document AI")
		doc, err := gdocai.ProcessDocument(ctx, data, mimeType, a.opts.DocAI)
		if err != nil {
			return nil, err
		}
		if a.opts.Debug {
			a.saveDocAIResponse(doc, name)
		}
		return gdocai.MenuFromProto(doc, gdocai.Options{})
	}
	return nil, fmt.Errorf("unsupported input type: %s", input)
}

// saveDocAIResponse keeps the raw response so the document can be scored
// again without another API call
func (a *app) saveDocAIResponse(doc *documentaipb.Document, name string) {
	out, err := gdocai.ToJSON(doc)
	if err == nil {
		path := filepath.Join(a.opts.OutputDir, name+docAISuffix)
		err = writeOutput(path, []byte(out), true)
		if err == nil {
			a.logger.WithField("path", path).Debug("Document AI response saved")
			return
		}
	}
	a.logger.WithError(err).Warn("Failed to save Document AI response")
}

func (a *app) render(source string, m *menu.Menu, selected []*menu.Line, logger logrus.FieldLogger) ([]byte, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}

	cfg := annotate.DefaultConfig()
	cfg.LayerName = a.cfg.Annotate.LayerName
	cfg.Labels = a.cfg.Annotate.Labels
	cfg.LineWidth = a.cfg.Annotate.LineWidth
	cfg.Color = a.cfg.Annotate.Color
	cfg.Debug = a.opts.Debug
	cfg.Force = a.opts.Force
	cfg.Logger = logger

	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		return annotate.Annotate(data, m, selected, cfg)
	}
	if a.opts.Force {
		logger.Warn("-force is only applicable to PDF sources, ignoring it")
	}
	return annotate.AssembleWithBoxes([][]byte{data}, m, selected, cfg)
}

// writeOutput writes data to path, refusing to replace an existing file
// unless overwrite is set
func writeOutput(path string, data []byte, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("output file %s already exists, use -overwrite to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
