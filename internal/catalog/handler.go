package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"receiving-backend/internal/shared/server/respond"
)

// Handler exposes read-only catalog lookups for the operator UI.
type Handler struct {
	Lookup Lookup
}

// NewHandler constructs a Handler.
func NewHandler(lookup Lookup) *Handler {
	return &Handler{Lookup: lookup}
}

// RegisterRoutes attaches catalog routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects", h.projects)
	rg.GET("/locations", h.locations)
	rg.GET("/part-numbers", h.partNumbers)
}

func (h *Handler) projects(c *gin.Context) {
	projects, err := h.Lookup.ActiveProjects(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load projects", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) locations(c *gin.Context) {
	locations, err := h.Lookup.ActiveLocations(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load locations", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"locations": locations})
}

func (h *Handler) partNumbers(c *gin.Context) {
	parts, err := h.Lookup.PartNumbers(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load part numbers", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"partNumbers": parts})
}
