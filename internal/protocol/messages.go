// Package protocol defines the JSON frames of the mesh stream. Frames are
// self-describing via their "type" field.
package protocol

// SUBSCRIBE (client -> server): request the mesh of one chunk and rebuilds of
// it while the connection lives.
type SubscribeMsg struct {
	Type string `json:"type"`
	CX   int    `json:"cx"`
	CZ   int    `json:"cz"`
}

// VertexBlend is a per-vertex material mix reduced to the four dominant
// materials; weights sum to 1.
type VertexBlend struct {
	Weights   [4]float32 `json:"weights"`
	Materials [4]uint8   `json:"materials"`
}

// MESH (server -> client): a full chunk mesh. Positions and normals are flat
// xyz triples, one triple per vertex; indices come in groups of three.
type MeshMsg struct {
	Type      string        `json:"type"`
	CX        int           `json:"cx"`
	CZ        int           `json:"cz"`
	Positions []float32     `json:"positions"`
	Normals   []float32     `json:"normals"`
	Blends    []VertexBlend `json:"blends"`
	Indices   []uint32      `json:"indices"`
}

// ERROR (server -> client). CX/CZ identify the subscription that failed when
// the error concerns one.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	CX      int    `json:"cx,omitempty"`
	CZ      int    `json:"cz,omitempty"`
}
