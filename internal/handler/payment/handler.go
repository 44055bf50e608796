package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hmarroquin/labtrack-api/internal/handler"
	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/service/billing"
)

type Handler struct {
	service billing.BillingService
}

func NewHandler(service billing.BillingService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/full", h.PayFull)
		payments.POST("/partial", h.PayPartial)
	}
	r.GET("/patients/:id/pending", h.PendingSummary)
	r.GET("/patients/:id/payments", h.History)
}

func (h *Handler) PayFull(c *gin.Context) {
	var req model.PayFullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.PayFull(c.Request.Context(), &req)
	if err != nil {
		h.allocationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) PayPartial(c *gin.Context) {
	var req model.PayPartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.PayPartial(c.Request.Context(), &req)
	if err != nil {
		h.allocationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

// allocationError maps the empty-resolution case to a 422; callers named
// exams that no longer exist for them.
func (h *Handler) allocationError(c *gin.Context, err error) {
	if errors.Is(err, billing.ErrNothingToPay) {
		c.JSON(http.StatusUnprocessableEntity, handler.NewErrorResponse("no pending exams to pay"))
		return
	}
	handler.Error(c, err)
}

func (h *Handler) PendingSummary(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	summary, err := h.service.PendingSummary(c.Request.Context(), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) History(c *gin.Context) {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	payments, err := h.service.History(c.Request.Context(), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(payments))
}
