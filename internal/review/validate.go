package review

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
)

// Stage names recorded on a SchemaValidationError.
const (
	StageDirect = "direct"
	StageFenced = "fenced"
	StageRepair = "repair"
)

var fencePattern = regexp.MustCompile("(?is)```[ \\t]*(?:json)?[ \\t]*\\r?\\n?(.*?)```")

// Repairer asks the model to reprint its previous answer as bare JSON.
type Repairer interface {
	Repair(ctx context.Context) (string, error)
}

// RepairFunc adapts a function to the Repairer interface.
type RepairFunc func(ctx context.Context) (string, error)

// Repair calls f.
func (f RepairFunc) Repair(ctx context.Context) (string, error) {
	return f(ctx)
}

// StageFailure is why one validation stage did not produce an output.
type StageFailure struct {
	Stage  string
	Reason string
}

// SchemaValidationError is returned when no stage produced a valid output.
type SchemaValidationError struct {
	Failures []StageFailure
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Stage+": "+f.Reason)
	}
	return "model output failed schema validation (" + strings.Join(parts, "; ") + ")"
}

// IsSchemaValidationError reports whether err is a SchemaValidationError.
func IsSchemaValidationError(err error) bool {
	var target *SchemaValidationError
	return errors.As(err, &target)
}

// stageResult is the outcome of one stage: an output on success, otherwise
// the reason it failed.
type stageResult struct {
	output *Output
	reason string
}

func (r stageResult) ok() bool { return r.output != nil }

// Validator turns raw model text into a validated Output.
type Validator struct {
	schema *Schema
}

// NewValidator returns a validator enforcing the given comment cap.
func NewValidator(maxComments int) *Validator {
	return &Validator{schema: NewSchema(maxComments)}
}

// Validate tries, in order, a direct parse, a parse of any fenced code block,
// and a single repair round-trip through repair. The repaired text must parse
// directly. A nil repair skips the third stage. Errors from the repair call
// itself are returned as is.
func (v *Validator) Validate(ctx context.Context, raw string, repair Repairer) (Output, error) {
	logger := logging.GetLogger()
	var failures []StageFailure

	res := v.direct(raw)
	if res.ok() {
		return *res.output, nil
	}
	failures = append(failures, StageFailure{Stage: StageDirect, Reason: res.reason})
	logger.Debug(ctx, "Direct parse of model output failed: %s", res.reason)

	res = v.fenced(raw)
	if res.ok() {
		return *res.output, nil
	}
	failures = append(failures, StageFailure{Stage: StageFenced, Reason: res.reason})
	logger.Debug(ctx, "Fenced parse of model output failed: %s", res.reason)

	if repair == nil {
		return Output{}, &SchemaValidationError{Failures: failures}
	}

	logger.Info(ctx, "Model output did not match the schema; requesting one repair")
	repaired, err := repair.Repair(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("repair request: %w", err)
	}
	res = v.direct(repaired)
	if res.ok() {
		return *res.output, nil
	}
	failures = append(failures, StageFailure{Stage: StageRepair, Reason: res.reason})
	return Output{}, &SchemaValidationError{Failures: failures}
}

func (v *Validator) direct(text string) stageResult {
	if strings.TrimSpace(text) == "" {
		return stageResult{reason: "empty response"}
	}
	out, err := v.schema.Parse(text)
	if err != nil {
		return stageResult{reason: err.Error()}
	}
	return stageResult{output: &out}
}

func (v *Validator) fenced(text string) stageResult {
	blocks := ExtractFenced(text)
	if len(blocks) == 0 {
		return stageResult{reason: "no fenced code block"}
	}
	var first string
	for _, block := range blocks {
		res := v.direct(block)
		if res.ok() {
			return res
		}
		if first == "" {
			first = res.reason
		}
	}
	return stageResult{reason: first}
}

// ExtractFenced returns the bodies of every fenced code block in text that is
// unlabeled or labeled json, in order of appearance.
func ExtractFenced(text string) []string {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}
