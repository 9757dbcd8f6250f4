// Package synth turns a committed draft into the final graph shape the
// remote service accepts. It resolves node parameters against catalog
// defaults, materializes explicit edges, and infers the implicit ones:
// linear auto-chaining for single-output nodes and per-port fan-out for
// branching nodes.
package synth

import (
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/catalog"
	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

// connectionType is the only port class the draft model supports.
const connectionType = "main"

// Synthesize produces the final graph for a draft. credentials maps
// credential names (as referenced by draft nodes) to remote credential IDs;
// a referenced name missing from the map is attached by name only.
//
// Synthesize is pure: it never mutates the draft and the same inputs always
// yield the same graph. Structural validation (non-empty draft, trigger
// present, arity drift) happens before this point.
func Synthesize(cat *catalog.Catalog, draft *api.Draft, credentials map[string]string) *api.Graph {
	graph := &api.Graph{
		Name:        draft.Name,
		Nodes:       make([]api.GraphNode, 0, len(draft.Nodes)),
		Connections: make(map[string]api.NodeConnections),
		Settings:    map[string]any{"executionOrder": "v1"},
	}

	nameByID := make(map[string]string, len(draft.Nodes))
	for _, n := range draft.Nodes {
		nameByID[n.ID] = n.Name
		graph.Nodes = append(graph.Nodes, resolveNode(cat, n, credentials))
	}

	// Explicit edges first. Their targets seed the used-as-target set so
	// implicit wiring never duplicates an edge into an already-wired node.
	outgoing := make(map[string][][]api.ConnectionTarget, len(draft.Nodes))
	usedAsTarget := make(map[string]bool, len(draft.Nodes))
	for _, c := range draft.Connections {
		ports := outgoing[c.FromNode]
		for len(ports) <= c.FromOutput {
			ports = append(ports, []api.ConnectionTarget{})
		}
		ports[c.FromOutput] = append(ports[c.FromOutput], api.ConnectionTarget{
			Node:  nameByID[c.ToNode],
			Type:  connectionType,
			Index: c.ToInput,
		})
		outgoing[c.FromNode] = ports
		usedAsTarget[c.ToNode] = true
	}

	// Implicit edges for nodes with no explicit outgoing connection.
	for i, n := range draft.Nodes {
		if len(outgoing[n.ID]) > 0 {
			continue
		}
		if n.Metadata.Category == api.CategoryBranching {
			outgoing[n.ID] = fanOut(draft, i, n.Metadata.ExpectedOutputs, usedAsTarget)
			continue
		}
		if target, ok := chainTarget(draft, i, usedAsTarget); ok {
			outgoing[n.ID] = [][]api.ConnectionTarget{{
				{Node: target.Name, Type: connectionType, Index: 0},
			}}
			usedAsTarget[target.ID] = true
		}
	}

	// Connection maps are keyed by source node name. Terminal single-output
	// nodes are simply absent; a branching node keeps its ports even when
	// they are all empty.
	for _, n := range draft.Nodes {
		ports := outgoing[n.ID]
		if len(ports) == 0 {
			continue
		}
		graph.Connections[n.Name] = api.NodeConnections{Main: ports}
	}

	return graph
}

// resolveNode overlays the user configuration on the type defaults and
// attaches the resolved credential reference.
func resolveNode(cat *catalog.Catalog, n api.DraftNode, credentials map[string]string) api.GraphNode {
	params := make(map[string]any)
	if entry, ok := cat.Lookup(n.SimplifiedType); ok {
		for k, v := range entry.Defaults {
			params[k] = v
		}
	}
	for k, v := range n.Parameters {
		params[k] = v
	}

	node := api.GraphNode{
		ID:          n.ID,
		Name:        n.Name,
		Type:        n.ResolvedType,
		TypeVersion: n.TypeVersion,
		Position:    n.Position,
		Parameters:  params,
	}
	if n.CredentialRef != "" {
		node.Credentials = map[string]api.CredentialRef{
			n.CredentialRef: {
				ID:   credentials[n.CredentialRef],
				Name: n.CredentialRef,
			},
		}
	}
	return node
}

// chainTarget returns the auto-chain target for the single-output node at
// index i: the immediately following node, unless it is already wired as a
// target or there is no following node.
func chainTarget(draft *api.Draft, i int, usedAsTarget map[string]bool) (api.DraftNode, bool) {
	if i+1 >= len(draft.Nodes) {
		return api.DraftNode{}, false
	}
	next := draft.Nodes[i+1]
	if usedAsTarget[next.ID] {
		return api.DraftNode{}, false
	}
	return next, true
}

// fanOut wires each output port of the branching node at index i to the
// next unused subsequent node in draft order. Ports that run out of
// candidates stay empty.
func fanOut(draft *api.Draft, i, ports int, usedAsTarget map[string]bool) [][]api.ConnectionTarget {
	out := make([][]api.ConnectionTarget, ports)
	for p := range out {
		out[p] = []api.ConnectionTarget{}
	}

	next := i + 1
	for p := 0; p < ports; p++ {
		for next < len(draft.Nodes) && usedAsTarget[draft.Nodes[next].ID] {
			next++
		}
		if next >= len(draft.Nodes) {
			break
		}
		target := draft.Nodes[next]
		out[p] = []api.ConnectionTarget{{Node: target.Name, Type: connectionType, Index: 0}}
		usedAsTarget[target.ID] = true
		next++
	}
	return out
}
