package entries

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"receiving-backend/internal/extraction"
	"receiving-backend/internal/shared/server/middleware"
	"receiving-backend/internal/shared/server/respond"
	"receiving-backend/internal/shared/telemetry"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedExtensions = map[string]struct{}{
	".xml": {},
	".pdf": {},
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches entry routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/entries", h.upload)
	rg.GET("/entries", h.list)
	rg.GET("/entries/:id", tagEntry(h.get))
	rg.GET("/entries/:id/document", tagEntry(h.document))
	rg.POST("/entries/:id/project", tagEntry(h.assignProject))
	rg.PUT("/entries/:id/mappings", tagEntry(h.updateMappings))
	rg.POST("/entries/:id/mappings/refresh", tagEntry(h.refreshMappings))
	rg.POST("/entries/:id/review", tagEntry(h.markReviewed))
	rg.POST("/entries/:id/confirm", tagEntry(h.confirm))
	rg.POST("/entries/:id/reject", tagEntry(h.reject))
	rg.POST("/entries/:id/cancel", tagEntry(h.cancel))
}

// tagEntry records the target entry id for the request log.
func tagEntry(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.EntryIDKey, c.Param("id"))
		next(c)
	}
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if _, ok := allowedExtensions[fileExtension(fileHeader.Filename)]; !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only XML and PDF documents are accepted", nil)
		return
	}

	locationID := strings.TrimSpace(c.PostForm("locationId"))
	if locationID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "locationId is required", nil)
		return
	}
	var projectID *string
	if raw := strings.TrimSpace(c.PostForm("projectId")); raw != "" {
		projectID = &raw
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	entry, err := h.Svc.Upload(c.Request.Context(), UploadRequest{
		FileName:   fileHeader.Filename,
		LocationID: locationID,
		ProjectID:  projectID,
		Document:   file,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Set(middleware.EntryIDKey, entry.ID)
	telemetry.Info("entry uploaded", map[string]any{
		"entry_id":    entry.ID,
		"operator_id": middleware.OperatorIDFromContext(c),
	})
	respond.JSON(c, http.StatusCreated, toResponse(entry))
}

func (h *Handler) list(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)

	list, err := h.Svc.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "entry not found", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	out := make([]EntryResponse, len(list))
	for i, entry := range list {
		out[i] = toResponse(entry)
	}
	respond.OK(c, gin.H{"entries": out})
}

func (h *Handler) get(c *gin.Context) {
	entry, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(entry))
}

func (h *Handler) document(c *gin.Context) {
	reader, err := h.Svc.OpenDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer reader.Close()
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, nil)
}

type assignProjectRequest struct {
	ProjectID string `json:"projectId"`
}

func (h *Handler) assignProject(c *gin.Context) {
	var req assignProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "projectId is required", nil)
		return
	}

	entry, err := h.Svc.AssignProject(c.Request.Context(), c.Param("id"), req.ProjectID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(entry))
}

type updateMappingsRequest struct {
	Mappings []struct {
		ItemIndex    int     `json:"itemIndex"`
		PartNumberID *string `json:"partNumberId"`
	} `json:"mappings"`
}

func (h *Handler) updateMappings(c *gin.Context) {
	var req updateMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	updates := make([]MappingUpdate, len(req.Mappings))
	for i, m := range req.Mappings {
		updates[i] = MappingUpdate{ItemIndex: m.ItemIndex, PartNumberID: m.PartNumberID}
	}

	entry, err := h.Svc.UpdateMappings(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(entry))
}

func (h *Handler) refreshMappings(c *gin.Context) {
	entry, err := h.Svc.RefreshMappings(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(entry))
}

func (h *Handler) markReviewed(c *gin.Context) {
	entry, err := h.Svc.MarkReviewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	telemetry.Info("entry reviewed", map[string]any{
		"entry_id":    entry.ID,
		"operator_id": middleware.OperatorIDFromContext(c),
	})
	respond.OK(c, toResponse(entry))
}

func (h *Handler) confirm(c *gin.Context) {
	result, err := h.Svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	telemetry.Info("entry confirmed", map[string]any{
		"entry_id":          result.EntryID,
		"operator_id":       middleware.OperatorIDFromContext(c),
		"already_committed": result.AlreadyCommitted,
	})
	respond.OK(c, toCommitResponse(result))
}

func (h *Handler) reject(c *gin.Context) {
	entry, err := h.Svc.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(entry))
}

func (h *Handler) cancel(c *gin.Context) {
	entry, err := h.Svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, toResponse(entry))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "entry not found", nil)
	case errors.Is(err, ErrEntryNotReady):
		respond.Error(c, http.StatusConflict, "entry_not_ready", err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, ErrConcurrentModification):
		respond.Error(c, http.StatusConflict, "conflict", "entry was modified concurrently, reload and retry", nil)
	case errors.Is(err, ErrInvalidProject):
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_project", err.Error(), nil)
	case errors.Is(err, ErrInvalidLocation):
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_location", err.Error(), nil)
	case errors.Is(err, ErrInvalidPartNumber):
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_part_number", err.Error(), nil)
	case errors.Is(err, ErrMappingCountMismatch):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, extraction.ErrExtractionFailed):
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", err.Error(), nil)
	case errors.Is(err, ErrLedgerWriteFailed):
		respond.Error(c, http.StatusBadGateway, "ledger_unavailable", "commit could not reach the inventory ledger, a retry was scheduled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}

func parseIntQuery(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return def
	}
	return val
}

func fileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx:])
}
