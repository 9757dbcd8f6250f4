package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/catalog"
	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

func draftNode(id, name, simplified string, cat *catalog.Catalog, config map[string]any) api.DraftNode {
	entry, ok := cat.Lookup(simplified)
	if !ok {
		panic("unknown type in test fixture: " + simplified)
	}
	return api.DraftNode{
		ID:             id,
		Name:           name,
		SimplifiedType: simplified,
		ResolvedType:   entry.Type,
		TypeVersion:    entry.TypeVersion,
		Parameters:     config,
		Metadata:       catalog.Resolve(entry, config),
	}
}

func TestSynthesizeLinearAutoChain(t *testing.T) {
	cat := catalog.New()
	draft := &api.Draft{
		Name: "Linear",
		Nodes: []api.DraftNode{
			draftNode("n-1", "Start", "webhook", cat, nil),
			draftNode("n-2", "End", "http", cat, nil),
		},
	}

	graph := Synthesize(cat, draft, nil)

	require.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Connections, 1)

	start, ok := graph.Connections["Start"]
	require.True(t, ok, "expected Start to carry the only outgoing edge")
	require.Len(t, start.Main, 1)
	require.Len(t, start.Main[0], 1)
	assert.Equal(t, api.ConnectionTarget{Node: "End", Type: "main", Index: 0}, start.Main[0][0])

	_, ok = graph.Connections["End"]
	assert.False(t, ok, "terminal single-output node must be absent from the connection map")
}

func TestSynthesizeBinaryFanOut(t *testing.T) {
	cat := catalog.New()
	draft := &api.Draft{
		Name: "Branching",
		Nodes: []api.DraftNode{
			draftNode("n-1", "Gate", "if", cat, nil),
			draftNode("n-2", "Yes", "http", cat, nil),
			draftNode("n-3", "No", "slack", cat, nil),
		},
	}

	graph := Synthesize(cat, draft, nil)

	gate, ok := graph.Connections["Gate"]
	require.True(t, ok)
	require.Len(t, gate.Main, 2)
	require.Len(t, gate.Main[0], 1)
	require.Len(t, gate.Main[1], 1)
	assert.Equal(t, "Yes", gate.Main[0][0].Node)
	assert.Equal(t, "No", gate.Main[1][0].Node)
}

func TestSynthesizeExplicitEdgeSuppressesAutoChain(t *testing.T) {
	cat := catalog.New()
	draft := &api.Draft{
		Name: "Explicit",
		Nodes: []api.DraftNode{
			draftNode("n-a", "A", "webhook", cat, nil),
			draftNode("n-b", "B", "set", cat, nil),
			draftNode("n-c", "C", "http", cat, nil),
		},
		Connections: []api.DraftConnection{
			{FromNode: "n-a", ToNode: "n-c", FromOutput: 0, ToInput: 0},
		},
	}

	graph := Synthesize(cat, draft, nil)

	a := graph.Connections["A"]
	require.Len(t, a.Main, 1)
	require.Len(t, a.Main[0], 1)
	assert.Equal(t, "C", a.Main[0][0].Node, "explicit A->C must be kept verbatim")

	// B follows A in draft order but A is explicitly wired, so no A->B.
	// B's own auto-chain target is C, which is already used as a target,
	// so B stays terminal.
	_, ok := graph.Connections["B"]
	assert.False(t, ok, "B must not be wired into an already-targeted node")
}

func TestSynthesizeTrailingBranchKeepsEmptyPorts(t *testing.T) {
	cat := catalog.New()
	draft := &api.Draft{
		Name: "Trailing",
		Nodes: []api.DraftNode{
			draftNode("n-1", "Start", "manual", cat, nil),
			draftNode("n-2", "Gate", "if", cat, nil),
		},
	}

	graph := Synthesize(cat, draft, nil)

	gate, ok := graph.Connections["Gate"]
	require.True(t, ok, "a trailing branch node keeps its port structure")
	require.Len(t, gate.Main, 2)
	assert.Empty(t, gate.Main[0])
	assert.Empty(t, gate.Main[1])
}

func TestSynthesizeMultiwayFanOutSkipsUsedTargets(t *testing.T) {
	cat := catalog.New()
	config := map[string]any{"rules": []any{"a", "b", "c"}}
	draft := &api.Draft{
		Name: "Router",
		Nodes: []api.DraftNode{
			draftNode("n-1", "Route", "switch", cat, config),
			draftNode("n-2", "First", "http", cat, nil),
			draftNode("n-3", "Second", "slack", cat, nil),
			draftNode("n-4", "Third", "email", cat, nil),
		},
		Connections: []api.DraftConnection{
			// Second is explicitly wired from First; fan-out must skip it.
			{FromNode: "n-2", ToNode: "n-3", FromOutput: 0, ToInput: 0},
		},
	}

	graph := Synthesize(cat, draft, nil)

	route := graph.Connections["Route"]
	require.Len(t, route.Main, 3)
	require.Len(t, route.Main[0], 1)
	require.Len(t, route.Main[1], 1)
	assert.Equal(t, "First", route.Main[0][0].Node)
	assert.Equal(t, "Third", route.Main[1][0].Node)
	assert.Empty(t, route.Main[2], "a port with no unused candidate stays empty")
}

func TestSynthesizeResolvesParametersAndCredentials(t *testing.T) {
	cat := catalog.New()
	entry, ok := cat.Lookup("http")
	require.True(t, ok)
	require.NotEmpty(t, entry.Defaults, "fixture assumes http carries defaults")

	node := draftNode("n-1", "Call API", "http", cat, map[string]any{
		"url": "https://api.example.com/items",
	})
	node.CredentialRef = "prod-api"

	draft := &api.Draft{Name: "Creds", Nodes: []api.DraftNode{node}}
	graph := Synthesize(cat, draft, map[string]string{"prod-api": "cred-42"})

	require.Len(t, graph.Nodes, 1)
	got := graph.Nodes[0]

	assert.Equal(t, entry.Type, got.Type)
	assert.Equal(t, entry.TypeVersion, got.TypeVersion)
	assert.Equal(t, "https://api.example.com/items", got.Parameters["url"],
		"user config must win over type defaults")
	for k, v := range entry.Defaults {
		if k == "url" {
			continue
		}
		assert.Equal(t, v, got.Parameters[k], "default %q must be carried", k)
	}

	require.Contains(t, got.Credentials, "prod-api")
	assert.Equal(t, api.CredentialRef{ID: "cred-42", Name: "prod-api"}, got.Credentials["prod-api"])
}

func TestSynthesizeIsPure(t *testing.T) {
	cat := catalog.New()
	draft := &api.Draft{
		Name: "Pure",
		Nodes: []api.DraftNode{
			draftNode("n-1", "Start", "webhook", cat, map[string]any{"path": "/hook"}),
			draftNode("n-2", "End", "http", cat, nil),
		},
	}

	first := Synthesize(cat, draft, nil)
	second := Synthesize(cat, draft, nil)

	assert.Equal(t, first, second)
	assert.Empty(t, draft.Connections, "synthesis must never mutate the draft")
	assert.Equal(t, map[string]any{"path": "/hook"}, draft.Nodes[0].Parameters)

	assert.Equal(t, map[string]any{"executionOrder": "v1"}, first.Settings)
	assert.Equal(t, "Pure", first.Name)
}
