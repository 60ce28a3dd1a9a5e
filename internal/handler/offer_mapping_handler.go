package handler

import (
	"errors"
	"net/http"

	"salesboard/internal/middleware"
	"salesboard/internal/service"
	"salesboard/pkg/response"

	"github.com/gin-gonic/gin"
)

type OfferMappingHandler struct {
	integrityService service.OfferIntegrityService
}

func NewOfferMappingHandler(integrityService service.OfferIntegrityService) *OfferMappingHandler {
	return &OfferMappingHandler{integrityService: integrityService}
}

func (h *OfferMappingHandler) RegisterRoutes(router *gin.RouterGroup) {
	mappings := router.Group("/api/projects/:projectId/offer-mappings", middleware.RequireAuth(), middleware.RequireProjectMember())
	{
		mappings.GET("/integrity", h.GetIntegrityReport)
	}
}

// GetIntegrityReport checks the project's offer mappings against its funnels
// @Summary      Offer mapping integrity report
// @Tags         offer-mappings
// @Security     BearerAuth
// @Produce      json
// @Param        projectId  path  string  true  "Project ID"
// @Success      200  {object}  response.Response{data=model.OfferIntegrityReport}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/projects/{projectId}/offer-mappings/integrity [get]
func (h *OfferMappingHandler) GetIntegrityReport(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	report, err := h.integrityService.Report(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyProject) {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
