package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// Handlers serves the REST API over a tree.
type Handlers struct {
	tree types.Tree
}

// NewHandlers returns handlers for tree.
func NewHandlers(tree types.Tree) *Handlers {
	return &Handlers{tree: tree}
}

// HandleRoots handles GET /v1/roots.
func (h *Handlers) HandleRoots(c *gin.Context) {
	roots, err := h.tree.GetRoots(c.Request.Context())
	if err != nil {
		h.fail(c, "HandleRoots", err)
		return
	}
	if roots == nil {
		roots = []types.Node{}
	}
	c.JSON(http.StatusOK, NodesResponse{Nodes: roots})
}

// HandleGetNode handles GET /v1/nodes/:id. The node and its root flag come
// from one path read so they agree under concurrent moves.
func (h *Handlers) HandleGetNode(c *gin.Context) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	path, err := h.tree.GetPath(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "HandleGetNode", err)
		return
	}
	if len(path) == 0 {
		h.fail(c, "HandleGetNode", fmt.Errorf("node %d: %w", id, types.ErrNodeNotFound))
		return
	}
	c.JSON(http.StatusOK, NodeResponse{Node: path[len(path)-1].Node, Root: len(path) == 1})
}

// HandleChildren handles GET /v1/nodes/:id/children.
func (h *Handlers) HandleChildren(c *gin.Context) {
	id, ok := h.existingNode(c, "HandleChildren")
	if !ok {
		return
	}
	children, err := h.tree.GetDescendants(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "HandleChildren", err)
		return
	}
	if children == nil {
		children = []types.NodeAtDepth{}
	}
	c.JSON(http.StatusOK, DepthNodesResponse{Nodes: children})
}

// HandlePath handles GET /v1/nodes/:id/path. The node itself is the last
// element.
func (h *Handlers) HandlePath(c *gin.Context) {
	id, ok := h.existingNode(c, "HandlePath")
	if !ok {
		return
	}
	path, err := h.tree.GetPath(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "HandlePath", err)
		return
	}
	c.JSON(http.StatusOK, DepthNodesResponse{Nodes: path})
}

// HandleFind handles GET /v1/nodes?title=.
func (h *Handlers) HandleFind(c *gin.Context) {
	title, ok := c.GetQuery("title")
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title query parameter is required", Code: "INVALID_REQUEST"})
		return
	}
	id, err := h.tree.GetFirstID(c.Request.Context(), title)
	if err != nil {
		h.fail(c, "HandleFind", err)
		return
	}
	c.JSON(http.StatusOK, IDResponse{ID: id})
}

// HandleAddNode handles POST /v1/nodes.
func (h *Handlers) HandleAddNode(c *gin.Context) {
	var req AddNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	parent := types.NoParent
	switch {
	case req.ParentID != nil && req.ParentTitle != nil:
		badRequest(c, "parent_id and parent_title are mutually exclusive")
		return
	case req.ParentID != nil:
		parent = types.ParentID(*req.ParentID)
	case req.ParentTitle != nil:
		parent = types.ParentTitle(*req.ParentTitle)
	}

	id, err := h.tree.AddNode(c.Request.Context(), req.Title, parent)
	if err != nil {
		h.fail(c, "HandleAddNode", err)
		return
	}
	logger(c, "HandleAddNode").Info("node added", "node_id", id, "parent", parent.String())
	c.JSON(http.StatusCreated, NodeResponse{Node: types.Node{ID: id, Title: req.Title}, Root: parent.IsRoot()})
}

// HandleDetach handles POST /v1/nodes/:id/detach.
func (h *Handlers) HandleDetach(c *gin.Context) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	if err := h.tree.DetachNode(c.Request.Context(), id); err != nil {
		h.fail(c, "HandleDetach", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAttach handles POST /v1/nodes/:id/attach.
func (h *Handlers) HandleAttach(c *gin.Context) {
	h.reparent(c, "HandleAttach", h.tree.AttachNode)
}

// HandleMove handles POST /v1/nodes/:id/move.
func (h *Handlers) HandleMove(c *gin.Context) {
	h.reparent(c, "HandleMove", h.tree.MoveNode)
}

// HandleDelete handles DELETE /v1/nodes/:id.
func (h *Handlers) HandleDelete(c *gin.Context) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	if err := h.tree.DeleteNode(c.Request.Context(), id); err != nil {
		h.fail(c, "HandleDelete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleStats handles GET /v1/stats. Both counts come from one snapshot;
// every non-root node has exactly one depth-1 row.
func (h *Handlers) HandleStats(c *gin.Context) {
	snap, err := h.tree.Snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, "HandleStats", err)
		return
	}
	roots := len(snap.Nodes)
	for _, p := range snap.Paths {
		if p.Depth == 1 {
			roots--
		}
	}
	c.JSON(http.StatusOK, StatsResponse{Nodes: len(snap.Nodes), Roots: roots})
}

// HandleSnapshot handles GET /v1/snapshot.
func (h *Handlers) HandleSnapshot(c *gin.Context) {
	snap, err := h.tree.Snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, "HandleSnapshot", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handlers) reparent(c *gin.Context, handler string, op func(ctx context.Context, id, parent int64) error) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	var req ParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := op(c.Request.Context(), id, req.ParentID); err != nil {
		h.fail(c, handler, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) existingNode(c *gin.Context, handler string) (int64, bool) {
	id, ok := nodeID(c)
	if !ok {
		return 0, false
	}
	exists, err := h.tree.NodeExists(c.Request.Context(), id)
	if err != nil {
		h.fail(c, handler, err)
		return 0, false
	}
	if !exists {
		h.fail(c, handler, types.ErrNodeNotFound)
		return 0, false
	}
	return id, true
}

// fail maps err to a status code and error code and writes it.
func (h *Handlers) fail(c *gin.Context, handler string, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, types.ErrParentNotFound):
		status, code = http.StatusNotFound, "PARENT_NOT_FOUND"
	case errors.Is(err, types.ErrTitleNotFound):
		status, code = http.StatusNotFound, "TITLE_NOT_FOUND"
	case errors.Is(err, types.ErrNotFound):
		status, code = http.StatusNotFound, "NODE_NOT_FOUND"
	case errors.Is(err, types.ErrNotDetached):
		status, code = http.StatusConflict, "NOT_DETACHED"
	case errors.Is(err, types.ErrCycle):
		status, code = http.StatusConflict, "CYCLE"
	case errors.Is(err, types.ErrInvariantViolation):
		status, code = http.StatusConflict, "INVARIANT_VIOLATION"
	case errors.Is(err, types.ErrNotEmpty):
		status, code = http.StatusConflict, "NOT_EMPTY"
	case errors.Is(err, types.ErrClosed):
		status, code = http.StatusServiceUnavailable, "CLOSED"
	}

	l := logger(c, handler)
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "error", err, "status", status)
	} else {
		l.Warn("request rejected", "error", err, "status", status)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func nodeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "node id must be a positive integer", Code: "INVALID_ID"})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "INVALID_REQUEST"})
}

const requestIDKey = "request_id"

// requestID reuses the caller's X-Request-ID or issues a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

func logger(c *gin.Context, handler string) *slog.Logger {
	return slog.With(requestIDKey, c.GetString(requestIDKey), "handler", handler)
}
