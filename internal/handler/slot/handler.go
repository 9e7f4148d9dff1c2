package slot

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turnomed/clinic-api/internal/handler"
	"github.com/turnomed/clinic-api/internal/model"
	slotService "github.com/turnomed/clinic-api/internal/service/slot"
)

type Handler struct {
	service *slotService.Service
}

func NewHandler(service *slotService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/slots", h.ListSlots)
	r.GET("/specialties", h.ListSpecialties)
}

func (h *Handler) ListSlots(c *gin.Context) {
	filters := &model.SlotFilters{}

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
	if raw := c.Query("date_from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date_from, expected YYYY-MM-DD"))
			return
		}
		filters.DateFrom = &from
	}
	if raw := c.Query("date_to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date_to, expected YYYY-MM-DD"))
			return
		}
		filters.DateTo = &to
	}

	slots, err := h.service.ListSlots(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) ListSpecialties(c *gin.Context) {
	specialties, err := h.service.ListSpecialties(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(specialties))
}
