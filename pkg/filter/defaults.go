package filter

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/gardar/menucat/pkg/config"
	"github.com/gardar/menucat/pkg/menu"
)

// Default returns the reference sequence of heuristic filters. pages is
// the line ID to page number table of the menu being scored.
func Default(cfg config.Filters, pages menu.PageIndex) ([]Filter, error) {
	pattern := DefaultDuplicatePattern
	if cfg.Duplicate.Pattern != "" {
		var err error
		pattern, err = regexp.Compile(cfg.Duplicate.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid duplicate pattern: %w", err)
		}
	}

	return []Filter{
		PriceLine{Weight: cfg.Price.Weight, CurrencySigns: cfg.Price.CurrencySigns},
		LongLine{Weight: cfg.LongLine.Weight, DropoffStart: cfg.LongLine.DropoffStart},
		ContainsDigit{Weight: cfg.ContainsDigit.Weight},
		Capitalization{Weight: cfg.Capitalization.Weight},
		OCRConfidence{Weight: cfg.OCRConfidence.Weight},
		DuplicateText{Weight: cfg.Duplicate.Weight, Pattern: pattern},
		UnlikelyEnding{Weight: cfg.Ending.Weight, Endings: cfg.Ending.Endings},
		FontSize{Weight: cfg.FontSize.Weight, Percentile: cfg.FontSize.Percentile},
		RowAdjacency{Weight: cfg.RowAdjacency.Weight, Pages: pages},
	}, nil
}

// ForMenu builds the full pipeline for m: the default heuristics followed
// by the classifier when one is given.
func ForMenu(cfg config.Config, m *menu.Menu, classifier *Classifier, logger logrus.FieldLogger) (*Pipeline, error) {
	filters, err := Default(cfg.Filters, m.PageIndex())
	if err != nil {
		return nil, err
	}
	if classifier != nil {
		filters = append(filters, classifier)
	}
	return New(logger, filters...), nil
}
