package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/laundry-marketplace/internal/model"
)

// PresenceLister reports the identities with at least one live connection
type PresenceLister interface {
	Online() []model.Identity
}

// RealtimeHandler exposes presence over HTTP
type RealtimeHandler struct {
	presence PresenceLister
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(presence PresenceLister) *RealtimeHandler {
	return &RealtimeHandler{presence: presence}
}

// RegisterRoutes registers the realtime API routes
func (h *RealtimeHandler) RegisterRoutes(api gin.IRouter) {
	api.GET("/realtime/online", h.Online)
}

// Online lists online identities, optionally filtered by accountType
func (h *RealtimeHandler) Online(c *gin.Context) {
	filter := c.Query("accountType")

	online := make([]model.Identity, 0)
	for _, id := range h.presence.Online() {
		if filter != "" && string(id.AccountType) != filter {
			continue
		}
		online = append(online, id)
	}

	c.JSON(http.StatusOK, gin.H{"online": online, "count": len(online)})
}
