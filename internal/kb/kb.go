// Package kb provides optional pre-commit parameter validation. The
// knowledge base knows which parameter shapes the remote service accepts
// but cannot render in its visual editor; its findings are attached to the
// commit result as warnings and never block submission.
package kb

import (
	"fmt"
	"strings"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// Report is the outcome of validating one node's parameters.
type Report struct {
	Valid            bool     `json:"valid"`
	MatchedFormat    string   `json:"matched_format,omitempty"`
	EditorCompatible bool     `json:"editor_compatible"`
	Errors           []string `json:"errors,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Validator checks a node's parameters against known type shapes.
type Validator interface {
	Validate(simplifiedType string, parameters map[string]any) Report
}

// StaticValidator covers the built-in node types with hand-maintained
// rules. It has no external dependencies and is safe for concurrent use.
type StaticValidator struct{}

var _ Validator = (*StaticValidator)(nil)

// NewStaticValidator returns the built-in rule set.
func NewStaticValidator() *StaticValidator { return &StaticValidator{} }

func (v *StaticValidator) Validate(simplifiedType string, parameters map[string]any) Report {
	report := Report{Valid: true, EditorCompatible: true}

	switch strings.ToLower(strings.TrimSpace(simplifiedType)) {
	case "webhook":
		report.MatchedFormat = "webhook"
		path, _ := parameters["path"].(string)
		if path == "" {
			report.Valid = false
			report.Errors = append(report.Errors, "webhook nodes require a non-empty 'path' parameter")
		} else if strings.HasPrefix(path, "/") {
			report.Warnings = append(report.Warnings,
				"webhook paths are registered without a leading slash; the editor will strip it")
		}

	case "http":
		report.MatchedFormat = "httpRequest"
		if u, _ := parameters["url"].(string); u == "" {
			report.Warnings = append(report.Warnings, "http nodes without a 'url' will fail at execution time")
		}

	case "switch":
		report.MatchedFormat = "switch.rules"
		switch rules := parameters["rules"].(type) {
		case nil:
			report.Warnings = append(report.Warnings,
				"switch has no routing rules configured; it will expose the default two outputs")
		case []any:
			// The simplified flat shape is accepted by the API but the
			// editor only renders {rules: {values: [...]}}.
			report.EditorCompatible = false
			report.Warnings = append(report.Warnings,
				"flat 'rules' list is accepted but not editable in the visual editor; use {rules: {values: [...]}}")
		case map[string]any:
			if _, ok := rules["values"].([]any); !ok {
				report.Valid = false
				report.Errors = append(report.Errors, "switch 'rules' object must carry a 'values' list")
			}
		default:
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf("switch 'rules' has unsupported shape %T", rules))
		}

	case "code":
		report.MatchedFormat = "code"
		if _, ok := parameters["jsCode"].(string); !ok {
			report.Warnings = append(report.Warnings, "code nodes should define 'jsCode' as a string")
		}

	case "if", "filter":
		report.MatchedFormat = "conditions"
		if _, ok := parameters["conditions"].(map[string]any); !ok && parameters["conditions"] != nil {
			report.EditorCompatible = false
			report.Warnings = append(report.Warnings,
				"'conditions' should be an object; other shapes do not render in the editor")
		}
	}

	return report
}

// WarningsFor flattens a report into commit-result warning strings, one per
// finding, each prefixed with the node name.
func WarningsFor(nodeName string, report Report) []string {
	var out []string
	for _, e := range report.Errors {
		out = append(out, fmt.Sprintf("%s: %s", nodeName, e))
	}
	for _, w := range report.Warnings {
		out = append(out, fmt.Sprintf("%s: %s", nodeName, w))
	}
	return out
}

// ValidateDraft runs the validator over every node of a draft and returns
// the flattened warnings. A nil validator yields no warnings.
func ValidateDraft(v Validator, draft *api.Draft) []string {
	if v == nil {
		return nil
	}
	var warnings []string
	for _, n := range draft.Nodes {
		warnings = append(warnings, WarningsFor(n.Name, v.Validate(n.SimplifiedType, n.Parameters))...)
	}
	return warnings
}
