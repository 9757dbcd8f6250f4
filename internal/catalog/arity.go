package catalog

import "github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"

// DefaultMultiwayOutputs is used for a multi-way branch whose routing rules
// are not configured yet. Two (never zero) keeps early connect calls from
// being blocked; commit re-resolves arity from the final parameters and
// catches any drift.
const DefaultMultiwayOutputs = 2

// Resolve computes the output arity metadata for a node of the given type
// with the given configuration. It is pure: it is called when a node is
// added (to stamp its metadata) and again for validation, so the stored
// value and any recomputation cannot diverge.
func Resolve(entry Entry, config map[string]any) api.NodeMetadata {
	switch entry.Branch {
	case BranchBinary:
		return api.NodeMetadata{ExpectedOutputs: 2, Category: api.CategoryBranching}
	case BranchMultiway:
		if n := countRules(config); n > 0 {
			return api.NodeMetadata{ExpectedOutputs: n, Category: api.CategoryBranching}
		}
		return api.NodeMetadata{ExpectedOutputs: DefaultMultiwayOutputs, Category: api.CategoryBranching}
	default:
		return api.NodeMetadata{ExpectedOutputs: 1, Category: entry.Category}
	}
}

// countRules extracts the number of configured routing rules. Both the
// simplified shape (rules: [...]) and the remote service's native shape
// (rules: {values: [...]}) are accepted.
func countRules(config map[string]any) int {
	if config == nil {
		return 0
	}
	switch rules := config["rules"].(type) {
	case []any:
		return len(rules)
	case map[string]any:
		if values, ok := rules["values"].([]any); ok {
			return len(values)
		}
	}
	return 0
}
