package annotate

import (
	"github.com/sirupsen/logrus"
)

// Config holds user options for drawing category boxes into a PDF
type Config struct {
	LayerName string             // Base name of the layer (page number will be appended)
	Debug     bool               // Also outline lines that were not selected
	Force     bool               // Annotate even if the layer already exists
	Labels    bool               // Write "text (confidence)" above every box
	Color     [3]int             // RGB stroke and label color
	LineWidth float64            // Stroke width in points
	Font      FontConfig         // Label font
	Logger    logrus.FieldLogger // nil means the standard logger
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		LayerName: "Menu Categories", // Will be formatted as "Menu Categories (Page X)" in the final PDF
		Labels:    true,
		Color:     [3]int{255, 0, 0},
		LineWidth: 1.5,
		Font:      DefaultFont,
	}
}

// FontConfig contains font settings for box labels
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Font size in points
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont is one of the PDF core fonts, so nothing has to be embedded
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        8,
	AscentRatio: 0.718,
}

// debugColor outlines lines that were not selected
var debugColor = [3]int{160, 160, 160}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
