// Package report writes the scored category lines of a menu as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gardar/menucat/pkg/menu"
)

// Header is the first row of every report
var Header = []string{"text", "confidence"}

// WriteCSV writes one "text,confidence" row per line, after the header.
func WriteCSV(w io.Writer, lines []*menu.Line) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, line := range lines {
		row := []string{
			line.Text,
			strconv.FormatFloat(line.Analysis.CategoryConfidence, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write line %d: %w", line.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the report to path, creating its directory.
// An existing file is only replaced when overwrite is set.
func WriteCSVFile(path string, lines []*menu.Line, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteCSV(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
