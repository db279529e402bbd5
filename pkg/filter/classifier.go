package filter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/gardar/menucat/pkg/config"
	"github.com/gardar/menucat/pkg/menu"
)

// DefaultTokenLimit is the prompt budget per request. The model accepts
// 4096 tokens; the rest is left for the answer.
const DefaultTokenLimit = 3500

// charsPerToken approximates how many characters make up one token
const charsPerToken = 4

const basePrompt = `Classify restaurant menu strings as probable (100) or improbable (0) menu categories. 'Polevky', 'Wafle', 'Vino' are examples of categories, while specific items or prices aren't. Output should follow \d+: \d{1,3} format, with the first number being the ID and the second the category likelihood percentage.

Example input:
0: Soups
1: Wafle
2: Wafle s grilovanou slaninou
3: 5.99,-
4: Hot drinks
Example output based on the above input:
0: 99
1: 75
2: 15
3: 01
4: 95

Provide a similar output for all of the following lines:
`

var probabilityPattern = regexp.MustCompile(`(\d+):\s*(\d{1,3})\b`)

// Classifier asks a language model how likely each line is to be a
// category and blends the answer into the line's confidence.
//
// Lines are sent in batches that fit TokenLimit, one request at a time.
// Lines already below SkipBelow are not sent. For every index the model
// answers with probability p (0-100) the confidence is multiplied by
// 1 - (1 - p/100) * Weight. Indices the model leaves out stay unchanged.
type Classifier struct {
	Model      llms.Model // nil disables the filter
	Weight     float64
	SkipBelow  float64
	TokenLimit int
	Options    []llms.CallOption
	Logger     logrus.FieldLogger
}

// NewClassifier builds the filter from configuration. A nil model leaves
// the filter in its disabled, warn-only state.
func NewClassifier(model llms.Model, cfg config.Classifier, logger logrus.FieldLogger) *Classifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Classifier{
		Model:      model,
		Weight:     cfg.Weight,
		SkipBelow:  cfg.SkipBelow,
		TokenLimit: cfg.TokenLimit,
		Logger: logger.WithFields(logrus.Fields{
			"model": cfg.Model,
		}),
	}
}

// NewOpenAIModel creates the OpenAI chat model used by the classifier.
// It returns nil without error when no API key is configured.
func NewOpenAIModel(cfg config.Classifier) (llms.Model, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating OpenAI client: %w", err)
	}
	return model, nil
}

func (*Classifier) Name() string { return "classifier" }

// Apply runs the classifier without a deadline. Errors are logged.
func (c *Classifier) Apply(lines []*menu.Line) {
	if err := c.ApplyContext(context.Background(), lines); err != nil {
		c.logger().WithError(err).Error("Classifier failed")
	}
}

// ApplyContext sends every batch and applies the returned probabilities.
// A failed batch is logged and skipped; the errors of all failed batches
// are returned together.
func (c *Classifier) ApplyContext(ctx context.Context, lines []*menu.Line) error {
	logger := c.logger()
	if c.Model == nil {
		logger.Warn("No API key configured, the AI based filter will be skipped")
		return nil
	}

	var errs []error
	for _, b := range c.batches(lines) {
		logger.WithFields(logrus.Fields{
			"lines":  len(b.indices),
			"tokens": b.tokens,
		}).Info("Sending batch to the language model, this may take a while")

		content, err := llms.GenerateFromSinglePrompt(ctx, c.Model, b.prompt, c.Options...)
		if err != nil {
			logger.WithError(err).WithField("first_line", b.indices[0]).Error("Classifier request failed")
			errs = append(errs, fmt.Errorf("batch starting at line %d: %w", b.indices[0], err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		probabilities := ParseProbabilities(content)
		if len(probabilities) == 0 {
			logger.WithField("response", content).Warn("No probabilities found in classifier response")
			continue
		}
		c.applyProbabilities(lines, b, probabilities)
	}
	return errors.Join(errs...)
}

type batch struct {
	prompt  string
	indices []int
	tokens  float64
}

// batches splits lines into prompts. A batch stops growing once its
// estimated size passes the token limit; the next batch continues with the
// following line.
func (c *Classifier) batches(lines []*menu.Line) []batch {
	limit := c.TokenLimit
	if limit <= 0 {
		limit = DefaultTokenLimit
	}

	var out []batch
	cursor := 0
	for cursor < len(lines) {
		var sb strings.Builder
		sb.WriteString(basePrompt)
		sb.WriteString("\n")
		b := batch{}

		for cursor < len(lines) {
			i := cursor
			cursor++
			line := lines[i]
			// no reason to spend tokens on lines that are already filtered out
			if line.Analysis.CategoryConfidence < c.SkipBelow {
				continue
			}
			fmt.Fprintf(&sb, "\n%d: %s", i, line.Text)
			b.indices = append(b.indices, i)

			if estimateTokens(sb.String()) > float64(limit) {
				break
			}
		}

		if len(b.indices) == 0 {
			continue
		}
		b.prompt = sb.String()
		b.tokens = estimateTokens(b.prompt)
		out = append(out, b)
	}
	return out
}

func (c *Classifier) applyProbabilities(lines []*menu.Line, b batch, probabilities map[int]float64) {
	sent := make(map[int]bool, len(b.indices))
	for _, i := range b.indices {
		sent[i] = true
	}

	for index, p := range probabilities {
		if !sent[index] {
			continue
		}
		line := lines[index]
		multiplier := 1 - (1-p/100)*c.Weight
		before := line.Analysis.CategoryConfidence
		line.Analysis.CategoryConfidence *= multiplier

		c.logger().WithFields(logrus.Fields{
			"line":        index,
			"text":        line.Text,
			"probability": p,
			"multiplier":  multiplier,
			"before":      before,
			"after":       line.Analysis.CategoryConfidence,
		}).Debug("Applied classifier probability")
	}
}

// ParseProbabilities extracts "<index>: <percentage>" pairs from a model
// answer. Percentages above 100 are dropped; a repeated index keeps its
// last value.
func ParseProbabilities(content string) map[int]float64 {
	out := make(map[int]float64)
	for _, m := range probabilityPattern.FindAllStringSubmatch(content, -1) {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p, err := strconv.Atoi(m[2])
		if err != nil || p > 100 {
			continue
		}
		out[index] = float64(p)
	}
	return out
}

func estimateTokens(s string) float64 {
	return float64(utf8.RuneCountInString(s)) / charsPerToken
}

func (c *Classifier) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
