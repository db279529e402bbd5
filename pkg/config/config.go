// Package config loads the settings of the menu category scanner.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// environment variables. Only values are handled here; the filter and
// classifier packages decide what to do with them.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a run
type Config struct {
	Threshold  float64    `yaml:"threshold" env:"CONF_THRESHOLD"`
	LogLevel   string     `yaml:"log_level" env:"LOG_LEVEL"`
	OutputDir  string     `yaml:"output_dir" env:"OUTPUT_DIR"`
	Filters    Filters    `yaml:"filters"`
	Classifier Classifier `yaml:"classifier"`
	Annotate   Annotate   `yaml:"annotate"`
	DocumentAI DocumentAI `yaml:"document_ai"`
}

// Filters holds the weights and parameters of the heuristic filters
type Filters struct {
	Price struct {
		Weight        float64  `yaml:"weight"`
		CurrencySigns []string `yaml:"currency_signs"`
	} `yaml:"price"`
	LongLine struct {
		Weight       float64 `yaml:"weight"`
		DropoffStart int     `yaml:"dropoff_start"`
	} `yaml:"long_line"`
	ContainsDigit struct {
		Weight float64 `yaml:"weight"`
	} `yaml:"contains_digit"`
	Capitalization struct {
		Weight float64 `yaml:"weight"`
	} `yaml:"capitalization"`
	OCRConfidence struct {
		Weight float64 `yaml:"weight"`
	} `yaml:"ocr_confidence"`
	Duplicate struct {
		Weight  float64 `yaml:"weight"`
		Pattern string  `yaml:"pattern"`
	} `yaml:"duplicate"`
	Ending struct {
		Weight  float64  `yaml:"weight"`
		Endings []string `yaml:"endings"`
	} `yaml:"ending"`
	FontSize struct {
		Weight     float64 `yaml:"weight"`
		Percentile float64 `yaml:"percentile"`
	} `yaml:"font_size"`
	RowAdjacency struct {
		Weight float64 `yaml:"weight"`
	} `yaml:"row_adjacency"`
}

// Classifier configures the language model filter. The filter is only
// active when an API key is present.
type Classifier struct {
	APIKey     string  `yaml:"api_key" env:"OPEN_AI_API_KEY,OPENAI_API_KEY"`
	Model      string  `yaml:"model" env:"OPENAI_MODEL"`
	BaseURL    string  `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Weight     float64 `yaml:"weight"`
	SkipBelow  float64 `yaml:"skip_below"`
	TokenLimit int     `yaml:"token_limit"`
}

// Enabled reports whether a credential is configured.
func (c Classifier) Enabled() bool {
	return c.APIKey != ""
}

// Annotate configures the PDF output
type Annotate struct {
	LayerName string  `yaml:"layer_name"`
	Labels    bool    `yaml:"labels"`
	LineWidth float64 `yaml:"line_width"`
	Color     [3]int  `yaml:"color"`
}

// DocumentAI holds the Google Document AI processor settings
type DocumentAI struct {
	ProjectID   string `yaml:"project_id" env:"DOCAI_PROJECT_ID"`
	Location    string `yaml:"location" env:"DOCAI_LOCATION"`
	ProcessorID string `yaml:"processor_id" env:"DOCAI_PROCESSOR_ID"`
}

// Configured reports whether enough is set to call the processor.
func (d DocumentAI) Configured() bool {
	return d.ProjectID != "" && d.Location != "" && d.ProcessorID != ""
}

// Default returns the reference configuration.
func Default() Config {
	cfg := Config{
		Threshold: 0.75,
		LogLevel:  "info",
		Classifier: Classifier{
			Model:      "gpt-3.5-turbo",
			Weight:     0.5,
			SkipBelow:  1,
			TokenLimit: 3500, // limit is 4096 tokens, leave room for the answer
		},
		Annotate: Annotate{
			LayerName: "Menu Categories",
			Labels:    true,
			LineWidth: 1,
			Color:     [3]int{255, 0, 0},
		},
	}

	f := &cfg.Filters
	f.Price.Weight = 0.5
	f.Price.CurrencySigns = []string{",-", "€", "$", "Kč"}
	f.LongLine.Weight = 0.1
	f.LongLine.DropoffStart = 6
	f.ContainsDigit.Weight = 0.5
	f.Capitalization.Weight = 0.5
	f.OCRConfidence.Weight = 0.3
	f.Duplicate.Weight = 0.5
	f.Duplicate.Pattern = `[^a-zA-Z0-9\s]`
	f.Ending.Weight = 0.8
	f.Ending.Endings = []string{".", ",", ";", "!", "?", ")", "]", "}", "-"}
	f.FontSize.Weight = 0.1
	f.FontSize.Percentile = 0.75
	f.RowAdjacency.Weight = 0.75
	return cfg
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges the pipeline depends on.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0,1], got %v", c.Threshold)
	}
	if p := c.Filters.FontSize.Percentile; p < 0 || p > 1 {
		return fmt.Errorf("font size percentile must be within [0,1], got %v", p)
	}
	if c.Filters.LongLine.DropoffStart < 0 {
		return fmt.Errorf("long line dropoff must not be negative, got %d", c.Filters.LongLine.DropoffStart)
	}
	if c.Classifier.TokenLimit <= 0 {
		return fmt.Errorf("classifier token limit must be positive, got %d", c.Classifier.TokenLimit)
	}
	return nil
}

// Output directories used when none is configured
const (
	DefaultOutputDir           = "output"
	DefaultClassifierOutputDir = "output_ai"
)

// ResolveOutputDir returns the configured output directory. When none was
// set, runs with the classifier write to a separate directory.
func (c Config) ResolveOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	if c.Classifier.Enabled() {
		return DefaultClassifierOutputDir
	}
	return DefaultOutputDir
}
