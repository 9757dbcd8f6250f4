package api

// Graph is the fully materialized workflow in the remote service's native
// shape, ready for submission. It is produced by synthesis from a committed
// draft; partial or implicit connectivity never reaches this type.
type Graph struct {
	Name        string                     `json:"name"`
	Nodes       []GraphNode                `json:"nodes"`
	Connections map[string]NodeConnections `json:"connections"`
	Settings    map[string]any             `json:"settings"`
}

// GraphNode is one node of the final graph. Parameters are the node type's
// defaults overlaid with the user-provided configuration.
type GraphNode struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	TypeVersion int                      `json:"typeVersion"`
	Position    [2]int                   `json:"position"`
	Parameters  map[string]any           `json:"parameters"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`
}

// CredentialRef points a node at a stored credential in the remote service.
type CredentialRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NodeConnections holds the outgoing edges of one node, keyed by output
// port. Main[i] lists the targets wired to output port i; a port with no
// target carries an empty list rather than being wired incorrectly.
type NodeConnections struct {
	Main [][]ConnectionTarget `json:"main"`
}

// ConnectionTarget identifies the receiving end of an edge.
type ConnectionTarget struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}
