package httpapi

import "github.com/mesh-intelligence/grove/pkg/types"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AddNodeRequest is the body of POST /v1/nodes. At most one of ParentID and
// ParentTitle may be set; neither creates a root.
type AddNodeRequest struct {
	Title       string  `json:"title"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	ParentTitle *string `json:"parent_title,omitempty"`
}

// ParentRequest is the body of the attach and move endpoints.
type ParentRequest struct {
	ParentID int64 `json:"parent_id" binding:"required"`
}

// NodeResponse describes one node.
type NodeResponse struct {
	types.Node
	Root bool `json:"root"`
}

// NodesResponse lists nodes without depth.
type NodesResponse struct {
	Nodes []types.Node `json:"nodes"`
}

// DepthNodesResponse lists nodes with their depth relative to the queried
// node.
type DepthNodesResponse struct {
	Nodes []types.NodeAtDepth `json:"nodes"`
}

// IDResponse carries a single node id.
type IDResponse struct {
	ID int64 `json:"id"`
}

// StatsResponse summarizes the tree.
type StatsResponse struct {
	Nodes int `json:"nodes"`
	Roots int `json:"roots"`
}
