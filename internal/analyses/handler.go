package analyses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/shared/server/middleware"
	"venture-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.createAnalysis)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.PUT("/analyses/:id/sections/:sectionId", h.overrideSection)
}

func (h *Handler) createAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var input Input
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be valid JSON", nil)
		return
	}
	if strings.TrimSpace(input.Description) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "description is required", []map[string]string{
			{"field": "description", "issue": "required"},
		})
		return
	}
	if strings.TrimSpace(input.Industry) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "industry is required", []map[string]string{
			{"field": "industry", "issue": "required"},
		})
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	analysis, err := h.Svc.Create(ctx, userID, input)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	analysis, err := h.Svc.Get(c.Request.Context(), analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	resolved, total := Progress(analysis)
	resp := gin.H{
		"id":        analysis.ID,
		"status":    analysis.Status,
		"userInput": analysis.Input,
		"sections":  analysis.Sections,
		"createdAt": analysis.CreatedAt,
		"updatedAt": analysis.UpdatedAt,
		"progress": gin.H{
			"resolvedSections":          resolved,
			"totalSections":             total,
			"estimatedSecondsRemaining": EstimateRemainingSeconds(analysis),
		},
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	if isGuest, ok := c.Get("isGuest"); ok {
		if guest, ok2 := isGuest.(bool); ok2 && guest {
			respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
			return
		}
	}

	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	analyses, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(analyses))
	for _, a := range analyses {
		resp = append(resp, gin.H{
			"analysisId":  a.ID,
			"status":      a.Status,
			"description": a.Input.Description,
			"industry":    a.Input.Industry,
			"createdAt":   a.CreatedAt,
		})
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) overrideSection(c *gin.Context) {
	analysisID := c.Param("id")
	sectionID := c.Param("sectionId")
	if analysisID == "" || sectionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id and section id are required", nil)
		return
	}

	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Data) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must contain a data object", nil)
		return
	}

	section, err := h.Svc.OverrideSection(c.Request.Context(), analysisID, sectionID, body.Data)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		case errors.Is(err, ErrUnknownSection):
			respond.Error(c, http.StatusNotFound, "not_found", "unknown section", nil)
		default:
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "section data does not match the section schema", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"sectionId": section.SectionID,
		"status":    section.Status,
		"data":      section.Data,
	})
}
