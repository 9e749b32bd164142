package httpapi

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the tree endpoints on rg (typically /v1):
//
//	GET    /roots
//	GET    /stats
//	GET    /snapshot
//	GET    /nodes?title=
//	POST   /nodes
//	GET    /nodes/:id
//	DELETE /nodes/:id
//	GET    /nodes/:id/children
//	GET    /nodes/:id/path
//	POST   /nodes/:id/detach
//	POST   /nodes/:id/attach
//	POST   /nodes/:id/move
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/roots", h.HandleRoots)
	rg.GET("/stats", h.HandleStats)
	rg.GET("/snapshot", h.HandleSnapshot)

	nodes := rg.Group("/nodes")
	nodes.GET("", h.HandleFind)
	nodes.POST("", h.HandleAddNode)
	nodes.GET("/:id", h.HandleGetNode)
	nodes.DELETE("/:id", h.HandleDelete)
	nodes.GET("/:id/children", h.HandleChildren)
	nodes.GET("/:id/path", h.HandlePath)
	nodes.POST("/:id/detach", h.HandleDetach)
	nodes.POST("/:id/attach", h.HandleAttach)
	nodes.POST("/:id/move", h.HandleMove)
}
