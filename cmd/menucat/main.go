// menucat is a command-line tool that finds the category headers of a
// scanned restaurant menu in its OCR results.
//
// Every line of the OCR result is scored by a chain of heuristic filters
// and, when an OpenAI API key is configured, by a language model. Lines
// above the confidence threshold are written to a CSV report and drawn as
// boxes onto the source PDF or image.
//
// Usage:
//
//	menucat -input menu.json [options]
//
// Required flags:
//
//	-input string   OCR result file or directory of OCR result files
//
// Input types (by extension):
//
//	.json           OCR JSON (status plus recognitionResults)
//	.docai.json     Saved Google Document AI response
//	.hocr, .html    hOCR (Tesseract and others)
//	.pdf, images    Raw document, sent to Google Document AI (needs -docai-config)
//
// Options:
//
//	-config string        Path to the YAML configuration file
//	-output string        Output directory (default "output", or "output_ai" with the classifier)
//	-source string        Source PDF or image to annotate (default: found next to the input by name)
//	-threshold float      Confidence threshold, overrides the configuration
//	-docai-config string  YAML file with Document AI project_id, location and processor_id
//	-no-ai                Skip the language model even if an API key is set
//	-debug                Debug logging, outline unselected lines in the PDF
//	-force                Annotate PDFs that already have a category layer
//	-overwrite            Overwrite existing output files
//
// Environment:
//
//	OPEN_AI_API_KEY (or OPENAI_API_KEY) enables the classifier. CONF_THRESHOLD,
//	LOG_LEVEL, OPENAI_MODEL and OPENAI_BASE_URL override the configuration.
//	GOOGLE_APPLICATION_CREDENTIALS authenticates with Google Cloud.
//
// Example:
//
//	menucat -input scans/ -threshold 0.8
//	menucat -config menucat.yml -input lunch.hocr -source lunch.png -overwrite
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gardar/menucat/pkg/config"
	"github.com/gardar/menucat/pkg/gdocai"
)

// loadDocAIConfig reads a YAML file with the Document AI processor settings
func loadDocAIConfig(path string) (config.DocumentAI, error) {
	var dc config.DocumentAI
	data, err := os.ReadFile(path)
	if err != nil {
		return dc, err
	}
	if err := yaml.Unmarshal(data, &dc); err != nil {
		return dc, err
	}
	return dc, nil
}

// newLogger builds the run logger. debug wins over the configured level.
func newLogger(level string, debug bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if debug {
		logger.SetLevel(logrus.DebugLevel)
		return logger, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

func main() {
	configPath := flag.String("config", "", "Path to the config YAML file")
	inputPath := flag.String("input", "", "OCR result file or directory (required)")
	outputDir := flag.String("output", "", "Directory to write the CSV and PDF output to")
	sourcePath := flag.String("source", "", "Source PDF or image to draw the boxes on")
	threshold := flag.Float64("threshold", config.Default().Threshold, "Confidence threshold in [0,1]")
	docaiConfig := flag.String("docai-config", "", "Path to a YAML file with Google Document AI settings")
	noAI := flag.Bool("no-ai", false, "Do not use the language model filter")
	debug := flag.Bool("debug", false, "Enable debug mode")
	force := flag.Bool("force", false, "Annotate even if a category layer is already detected")
	overwrite := flag.Bool("overwrite", false, "Overwrite output files if they already exist")
	flag.Parse()

	providedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		providedFlags[f.Name] = true
	})

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -input flag is required")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if providedFlags["threshold"] {
		cfg.Threshold = *threshold
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *noAI {
		cfg.Classifier.APIKey = ""
	}
	if *docaiConfig != "" {
		cfg.DocumentAI, err = loadDocAIConfig(*docaiConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load Document AI config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	runLogger := logger.WithField("run", uuid.New().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := options{
		OutputDir: cfg.ResolveOutputDir(),
		Source:    *sourcePath,
		Debug:     *debug,
		Force:     *force,
		Overwrite: *overwrite,
	}
	if cfg.DocumentAI.Configured() {
		opts.DocAI = &gdocai.Config{
			ProjectID:   cfg.DocumentAI.ProjectID,
			Location:    cfg.DocumentAI.Location,
			ProcessorID: cfg.DocumentAI.ProcessorID,
		}
	}

	a, err := newApp(cfg, opts, runLogger)
	if err != nil {
		runLogger.WithError(err).Fatal("Failed to set up")
	}

	inputs, err := collectInputs(*inputPath)
	if err != nil {
		runLogger.WithError(err).Fatal("Failed to read input")
	}
	if len(inputs) == 0 {
		runLogger.WithField("input", *inputPath).Fatal("No OCR result files found")
	}
	if len(inputs) > 1 && *sourcePath != "" {
		runLogger.Warn("-source is used for every input file")
	}

	failed := 0
	for _, in := range inputs {
		if err := a.process(ctx, in); err != nil {
			runLogger.WithError(err).WithField("input", in).Error("Failed to process input")
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}
	if failed > 0 {
		runLogger.WithField("failed", failed).Error("Some inputs could not be processed")
		os.Exit(1)
	}
}
