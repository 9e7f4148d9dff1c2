package availability

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turnomed/clinic-api/internal/handler"
	"github.com/turnomed/clinic-api/internal/model"
	availabilityService "github.com/turnomed/clinic-api/internal/service/availability"
	"github.com/turnomed/clinic-api/pkg/metrics"
)

type Handler struct {
	service *availabilityService.Service
	metrics *metrics.Metrics
}

func NewHandler(service *availabilityService.Service, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: metrics}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	availability := r.Group("/availability")
	{
		availability.POST("", h.CreateTemplate)
		availability.GET("", h.ListTemplates)
		availability.GET("/:id", h.GetTemplate)
		availability.PATCH("/:id", h.UpdateTemplate)
		availability.DELETE("/:id", h.DeactivateTemplate)
	}

	r.POST("/specialists/:id/slots/generate", h.GenerateSlots)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req model.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tmpl, err := h.service.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid template ID"))
		return
	}

	tmpl, err := h.service.GetTemplate(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid template ID"))
		return
	}

	var req model.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tmpl, err := h.service.UpdateTemplate(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) DeactivateTemplate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid template ID"))
		return
	}

	tmpl, err := h.service.DeactivateTemplate(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	filters := &model.AvailabilityFilters{
		DayOfWeek: model.Weekday(c.Query("day_of_week")),
	}

	if raw := c.Query("specialist_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid specialist ID"))
			return
		}
		filters.SpecialistID = &id
	}
	if raw := c.Query("specialty_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid specialty ID"))
			return
		}
		filters.SpecialtyID = &id
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid active flag"))
			return
		}
		filters.Active = &active
	}

	templates, err := h.service.ListTemplates(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(templates))
}

func (h *Handler) GenerateSlots(c *gin.Context) {
	specialistID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid specialist ID"))
		return
	}

	var req model.GenerateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.GenerateSlots(c.Request.Context(), specialistID, req.Days)
	if err != nil {
		c.Error(err)
		return
	}

	h.metrics.SlotsGenerated.Add(float64(result.Created))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
