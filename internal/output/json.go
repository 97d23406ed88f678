package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/patchpilot/internal/pipeline"
)

// JSONWriter outputs the full run result as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
