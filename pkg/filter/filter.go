// Package filter scores OCR lines as probable menu category headers.
//
// Every Filter is one independent heuristic that multiplies the
// CategoryConfidence of the lines it matches. A Pipeline runs filters in a
// fixed order over the flattened lines of a menu, pulls confidences back into
// [0,1] after every stage, and selects the lines above a threshold.
//
// Key Types:
//
// - Filter: a single heuristic applied to all lines in one pass
// - ContextFilter: a filter that blocks on I/O and may fail
// - Pipeline: the ordered composition of filters plus thresholding
// - Classifier: the optional language model filter
//
// The order of filters matters. Multipliers compound on whatever confidence
// the previous stages left behind, so reordering changes results.
package filter

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/gardar/menucat/pkg/menu"
)

// Filter mutates the Analysis of each line it matches. Implementations must
// not reorder or drop lines and must accept empty input and empty text.
type Filter interface {
	Apply(lines []*menu.Line)
}

// ContextFilter is implemented by filters that call out to other services.
// The pipeline uses ApplyContext instead of Apply when it is available.
// Any confidence changes made before an error are kept.
type ContextFilter interface {
	Filter
	ApplyContext(ctx context.Context, lines []*menu.Line) error
}

// Pipeline applies filters in declared order
type Pipeline struct {
	Filters []Filter
	Logger  logrus.FieldLogger
}

// New returns a pipeline over filters. A nil logger uses the logrus
// standard logger.
func New(logger logrus.FieldLogger, filters ...Filter) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{Filters: filters, Logger: logger}
}

// ScoreAndSelect runs every filter over the menu's lines and returns the
// lines whose category confidence is strictly above threshold, in page
// order then in-page order.
func (p *Pipeline) ScoreAndSelect(ctx context.Context, m *menu.Menu, threshold float64) []*menu.Line {
	return p.Run(ctx, m.Lines(), threshold)
}

// Run applies every filter in sequence to lines, clamping after each stage,
// and returns the lines above threshold.
func (p *Pipeline) Run(ctx context.Context, lines []*menu.Line, threshold float64) []*menu.Line {
	logger := p.logger()
	for _, f := range p.Filters {
		name := Name(f)

		if cf, ok := f.(ContextFilter); ok {
			if err := cf.ApplyContext(ctx, lines); err != nil {
				logger.WithError(err).WithField("filter", name).Error("Filter failed, keeping partial results")
			}
		} else {
			f.Apply(lines)
		}

		clamp(lines, logger.WithField("filter", name))
		logger.WithFields(logrus.Fields{
			"filter":    name,
			"remaining": countAbove(lines, threshold),
		}).Debug("Filter applied")
	}
	return Select(lines, threshold)
}

// Select returns lines with confidence strictly above threshold.
func Select(lines []*menu.Line, threshold float64) []*menu.Line {
	var out []*menu.Line
	for _, line := range lines {
		if line.Analysis.CategoryConfidence > threshold {
			out = append(out, line)
		}
	}
	return out
}

// Clamp forces every confidence back into [0,1] and returns how many lines
// were adjusted. NaN is treated as 0.
func Clamp(lines []*menu.Line) int {
	return clamp(lines, nil)
}

func clamp(lines []*menu.Line, logger logrus.FieldLogger) int {
	adjusted := 0
	for _, line := range lines {
		c := line.Analysis.CategoryConfidence
		var fixed float64
		switch {
		case math.IsNaN(c) || c < 0:
			fixed = 0
		case c > 1:
			fixed = 1
		default:
			continue
		}
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"line":       line.ID,
				"text":       line.Text,
				"confidence": c,
			}).Warnf("Category confidence out of range, clamped to %v", fixed)
		}
		line.Analysis.CategoryConfidence = fixed
		adjusted++
	}
	return adjusted
}

func countAbove(lines []*menu.Line, threshold float64) int {
	n := 0
	for _, line := range lines {
		if line.Analysis.CategoryConfidence > threshold {
			n++
		}
	}
	return n
}

// DefaultThreshold is the reference selection threshold
const DefaultThreshold = 0.75

// Name returns a short name for a filter, used in log fields.
func Name(f Filter) string {
	if n, ok := f.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}
