package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the Read API on rg, which the caller has already
// mounted at /api/claude. Handlers close over their components, so nothing
// here reaches for a package-level singleton.
func SetupRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/sessions", h.listConversations)
	rg.GET("/sessions/:id", h.getConversationDetails)
	rg.GET("/sessions/:id/metadata", h.getConversationMetadata)
	rg.PATCH("/sessions/:id", h.updateSessionInfo)
	rg.DELETE("/sessions/:id", h.deleteSession)
	rg.POST("/sessions/archive-all", h.archiveAll)

	rg.GET("/stream/:streamingId", h.streamHandler)
}
