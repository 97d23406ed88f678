package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/patchpilot/internal/pipeline"
)

// Writer writes a run result in a specific format.
type Writer interface {
	Write(w io.Writer, res *pipeline.Result) error
}

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "markdown", "sarif"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes res to outPath, or to stdout when outPath is empty.
func WriteReport(res *pipeline.Result, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, res)
}
