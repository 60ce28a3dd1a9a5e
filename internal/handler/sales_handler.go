package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"salesboard/internal/logger"
	"salesboard/internal/middleware"
	"salesboard/internal/model"
	"salesboard/internal/service"
	"salesboard/pkg/pagination"
	"salesboard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SalesHandler struct {
	salesService service.SalesService
	log          logrus.FieldLogger
}

func NewSalesHandler(salesService service.SalesService, log logrus.FieldLogger) *SalesHandler {
	return &SalesHandler{salesService: salesService, log: log}
}

func (h *SalesHandler) RegisterRoutes(router *gin.RouterGroup) {
	sales := router.Group("/api/projects/:projectId/sales", middleware.RequireAuth(), middleware.RequireProjectMember())
	{
		sales.GET("", h.ListSales)
		sales.GET("/totals", h.GetTotals)
		sales.GET("/export", h.ExportSales)
	}
}

// SalesMeta accompanies a page of rows
type SalesMeta struct {
	Pagination pagination.State  `json:"pagination"`
	Totals     model.SalesTotals `json:"totals"`
}

// ListSales returns one page of reconciled sales
// @Summary      List sales
// @Description  Rows are one per transaction. Totals are only included when a post-merge filter (product, offer, funnel, UTM) is set; otherwise they are loading and come from /sales/totals.
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        projectId     path      string  true   "Project ID"
// @Param        start_date    query     string  false  "First business date, YYYY-MM-DD (default: first day of the month)"
// @Param        end_date      query     string  false  "Last business date, YYYY-MM-DD (default: today)"
// @Param        status        query     []string  false  "approved, refunded, chargeback, cancelled (default: approved)"
// @Param        funnel_id     query     []string  false  "Funnel IDs"
// @Param        product_id    query     []string  false  "Product IDs"
// @Param        offer_code    query     []string  false  "Offer codes"
// @Param        account_id    query     []string  false  "Provider account IDs"
// @Param        utm_source    query     string  false  "Case-insensitive substring"
// @Param        utm_campaign  query     string  false  "Case-insensitive substring"
// @Param        utm_adset     query     string  false  "Case-insensitive substring"
// @Param        utm_placement query     string  false  "Case-insensitive substring"
// @Param        utm_creative  query     string  false  "Case-insensitive substring"
// @Param        page          query     int     false  "Page number (default: 1)"
// @Param        limit         query     int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/projects/{projectId}/sales [get]
func (h *SalesHandler) ListSales(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	page, err := h.salesService.Page(c.Request.Context(), projectID, ParseSalesFilter(c), p.Page, p.Limit)
	if err != nil {
		h.writeError(c, "ListSales", projectID, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMeta(http.StatusOK, page.Rows, SalesMeta{
		Pagination: page.Pagination,
		Totals:     page.Totals,
	}))
}

// GetTotals aggregates the whole filtered set
// @Summary      Sales totals
// @Description  Count, gross, net and distinct buyers over every row matching the filters. degraded=true means only the count is reliable.
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        projectId   path   string  true   "Project ID"
// @Param        start_date  query  string  false  "First business date, YYYY-MM-DD"
// @Param        end_date    query  string  false  "Last business date, YYYY-MM-DD"
// @Param        status      query  []string  false  "Statuses"
// @Success      200  {object}  response.Response{data=model.SalesTotals}
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/projects/{projectId}/sales/totals [get]
func (h *SalesHandler) GetTotals(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	totals, err := h.salesService.Totals(c.Request.Context(), projectID, ParseSalesFilter(c))
	if err != nil {
		h.writeError(c, "GetTotals", projectID, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, totals))
}

// ExportSales downloads every filtered row as an Excel workbook
// @Summary      Export sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        projectId   path   string  true   "Project ID"
// @Param        start_date  query  string  false  "First business date, YYYY-MM-DD"
// @Param        end_date    query  string  false  "Last business date, YYYY-MM-DD"
// @Success      200
// @Failure      400  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/projects/{projectId}/sales/export [get]
func (h *SalesHandler) ExportSales(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := h.salesService.Export(c.Request.Context(), projectID, ParseSalesFilter(c), &buf); err != nil {
		h.writeError(c, "ExportSales", projectID, err)
		return
	}

	filename := fmt.Sprintf("sales-%s.xlsx", projectID.String()[:8])
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *SalesHandler) writeError(c *gin.Context, funcName string, projectID uuid.UUID, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidFilter), errors.Is(err, service.ErrEmptyProject):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrExportTooLarge):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, "Too many rows to export, narrow the filters"))
	default:
		logger.LogError(h.log, "handler", funcName, "sales source failed", map[string]interface{}{"project_id": projectID}, err)
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, "Sales source unavailable: "+err.Error()))
	}
}

// ParseSalesFilter reads the filter from the query string. List parameters
// may repeat or be comma separated.
func ParseSalesFilter(c *gin.Context) model.SalesFilter {
	return model.SalesFilter{
		StartDate:    c.Query("start_date"),
		EndDate:      c.Query("end_date"),
		Statuses:     queryList(c, "status"),
		FunnelIDs:    queryList(c, "funnel_id"),
		ProductIDs:   queryList(c, "product_id"),
		OfferCodes:   queryList(c, "offer_code"),
		AccountIDs:   queryList(c, "account_id"),
		UTMSource:    c.Query("utm_source"),
		UTMCampaign:  c.Query("utm_campaign"),
		UTMAdset:     c.Query("utm_adset"),
		UTMPlacement: c.Query("utm_placement"),
		UTMCreative:  c.Query("utm_creative"),
	}
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// projectIDParam prefers the id resolved by RequireProjectMember.
func projectIDParam(c *gin.Context) (uuid.UUID, bool) {
	if id, ok := middleware.ProjectID(c); ok {
		return id, true
	}
	id, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid project id"))
		return uuid.Nil, false
	}
	return id, true
}
