package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/patchpilot/internal/pipeline"
	"github.com/dshills/patchpilot/internal/review"
)

// Rule IDs for SARIF results.
const (
	RuleInline = "patchpilot/inline-comment"
	RuleFile   = "patchpilot/file-comment"
)

// SARIFWriter outputs proposed comments in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, res *pipeline.Result) error {
	data, err := json.MarshalIndent(buildSARIF(res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

var sarifRules = []sarifRule{
	{
		ID:               RuleInline,
		Name:             "InlineComment",
		ShortDescription: sarifMessage{Text: "Review comment anchored to an added line"},
		DefaultConfig:    sarifDefaultConfig{Level: "warning"},
	},
	{
		ID:               RuleFile,
		Name:             "FileComment",
		ShortDescription: sarifMessage{Text: "Review comment that could not be anchored in the diff"},
		DefaultConfig:    sarifDefaultConfig{Level: "note"},
	},
}

// buildSARIF emits anchored comments first, then unanchored ones, each in
// model order. A region is set only when the new-file line is known.
func buildSARIF(res *pipeline.Result) sarifLog {
	results := []sarifResult{}
	for _, c := range res.Plan.Anchored {
		var region *sarifRegion
		if c.FileLine > 0 {
			region = &sarifRegion{StartLine: c.FileLine}
		}
		results = append(results, sarifComment(RuleInline, "warning", c.Comment, region))
	}
	for _, c := range res.Plan.Unanchored {
		results = append(results, sarifComment(RuleFile, "note", c, nil))
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "patchpilot",
						Version:        res.Version,
						InformationURI: "https://github.com/dshills/patchpilot",
						Rules:          sarifRules,
					},
				},
				Results: results,
			},
		},
	}
}

func sarifComment(ruleID, level string, c review.Comment, region *sarifRegion) sarifResult {
	result := sarifResult{
		RuleID:  ruleID,
		Level:   level,
		Message: sarifMessage{Text: c.Body},
		Locations: []sarifLocation{{
			PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: c.Path},
				Region:           region,
			},
		}},
	}
	if c.Suggestion != "" {
		result.Fixes = append(result.Fixes, sarifFix{Description: sarifMessage{Text: c.Suggestion}})
	}
	return result
}
