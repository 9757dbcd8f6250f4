// Package catalog maps simplified node type names to their full remote
// type identifiers and resolves per-type output arity. The catalog is
// read-only after construction and safe for concurrent use.
package catalog

import (
	"sort"
	"strings"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// BranchKind describes how a node type fans out. Arity rules are keyed by
// this closed enumeration, never by matching on raw type strings.
type BranchKind int

const (
	// BranchNone: single output (triggers, actions, transforms).
	BranchNone BranchKind = iota

	// BranchBinary: exactly two outputs, indexed "true" (0) and "false" (1).
	BranchBinary

	// BranchMultiway: one output per configured routing rule, no implicit
	// fallback port.
	BranchMultiway
)

// Entry describes one simplified node type.
type Entry struct {
	Name        string
	DisplayName string
	Type        string // full remote type identifier
	TypeVersion int
	Category    api.NodeCategory
	Branch      BranchKind
	Defaults    map[string]any
}

// Catalog holds the known node types, keyed by lowercased simplified name.
type Catalog struct {
	entries map[string]Entry
}

// New returns a catalog populated with the built-in node types.
func New() *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(builtins))}
	for _, e := range builtins {
		c.Add(e)
	}
	return c
}

// Add inserts or replaces an entry. Used by the built-in set and by
// overlay loading; not safe for use after the catalog is shared.
func (c *Catalog) Add(e Entry) {
	c.entries[strings.ToLower(e.Name)] = e
}

// Lookup resolves a simplified type name, case-insensitively.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.entries[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// Names returns all simplified type names in sorted order, for diagnostics.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtins = []Entry{
	{
		Name: "webhook", DisplayName: "Webhook",
		Type: "n8n-nodes-base.webhook", TypeVersion: 2,
		Category: api.CategoryTrigger,
		Defaults: map[string]any{"httpMethod": "POST", "path": "webhook"},
	},
	{
		Name: "schedule", DisplayName: "Schedule Trigger",
		Type: "n8n-nodes-base.scheduleTrigger", TypeVersion: 1,
		Category: api.CategoryTrigger,
		Defaults: map[string]any{
			"rule": map[string]any{
				"interval": []any{map[string]any{"field": "hours", "hoursInterval": 1}},
			},
		},
	},
	{
		Name: "manual", DisplayName: "Manual Trigger",
		Type: "n8n-nodes-base.manualTrigger", TypeVersion: 1,
		Category: api.CategoryTrigger,
	},
	{
		Name: "http", DisplayName: "HTTP Request",
		Type: "n8n-nodes-base.httpRequest", TypeVersion: 4,
		Category: api.CategoryAction,
		Defaults: map[string]any{"method": "GET", "url": ""},
	},
	{
		Name: "code", DisplayName: "Code",
		Type: "n8n-nodes-base.code", TypeVersion: 2,
		Category: api.CategoryTransform,
		Defaults: map[string]any{"mode": "runOnceForAllItems", "jsCode": "return items;"},
	},
	{
		Name: "set", DisplayName: "Edit Fields",
		Type: "n8n-nodes-base.set", TypeVersion: 3,
		Category: api.CategoryTransform,
		Defaults: map[string]any{"mode": "manual", "assignments": map[string]any{}},
	},
	{
		Name: "email", DisplayName: "Send Email",
		Type: "n8n-nodes-base.emailSend", TypeVersion: 2,
		Category: api.CategoryAction,
	},
	{
		Name: "slack", DisplayName: "Slack",
		Type: "n8n-nodes-base.slack", TypeVersion: 2,
		Category: api.CategoryAction,
		Defaults: map[string]any{"resource": "message", "operation": "post"},
	},
	{
		Name: "telegram", DisplayName: "Telegram",
		Type: "n8n-nodes-base.telegram", TypeVersion: 1,
		Category: api.CategoryAction,
		Defaults: map[string]any{"resource": "message", "operation": "sendMessage"},
	},
	{
		Name: "respond", DisplayName: "Respond to Webhook",
		Type: "n8n-nodes-base.respondToWebhook", TypeVersion: 1,
		Category: api.CategoryAction,
		Defaults: map[string]any{"respondWith": "json"},
	},
	{
		Name: "if", DisplayName: "If",
		Type: "n8n-nodes-base.if", TypeVersion: 2,
		Category: api.CategoryBranching, Branch: BranchBinary,
		Defaults: map[string]any{"conditions": map[string]any{}},
	},
	{
		Name: "filter", DisplayName: "Filter",
		Type: "n8n-nodes-base.filter", TypeVersion: 2,
		Category: api.CategoryBranching, Branch: BranchBinary,
		Defaults: map[string]any{"conditions": map[string]any{}},
	},
	{
		Name: "switch", DisplayName: "Switch",
		Type: "n8n-nodes-base.switch", TypeVersion: 3,
		Category: api.CategoryBranching, Branch: BranchMultiway,
		Defaults: map[string]any{"mode": "rules"},
	},
	{
		Name: "merge", DisplayName: "Merge",
		Type: "n8n-nodes-base.merge", TypeVersion: 3,
		Category: api.CategoryTransform,
		Defaults: map[string]any{"mode": "append"},
	},
	{
		Name: "wait", DisplayName: "Wait",
		Type: "n8n-nodes-base.wait", TypeVersion: 1,
		Category: api.CategoryAction,
		Defaults: map[string]any{"resume": "timeInterval", "amount": 1, "unit": "hours"},
	},
	{
		Name: "noop", DisplayName: "No Operation",
		Type: "n8n-nodes-base.noOp", TypeVersion: 1,
		Category: api.CategoryAction,
	},
}
