package supply

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hmarroquin/labtrack-api/internal/handler"
	"github.com/hmarroquin/labtrack-api/internal/model"
	"github.com/hmarroquin/labtrack-api/internal/service/inventory"
)

type Handler struct {
	service inventory.InventoryService
}

func NewHandler(service inventory.InventoryService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	supplies := r.Group("/supplies")
	{
		supplies.POST("", h.CreateSupply)
		supplies.GET("", h.ListSupplies)
		supplies.GET("/alerts", h.Alerts)
		supplies.GET("/:id", h.GetSupply)
		supplies.PUT("/:id", h.UpdateSupply)

		supplies.POST("/usage", h.RecordUsage)
		supplies.GET("/usage", h.ListUsage)
	}
}

func (h *Handler) CreateSupply(c *gin.Context) {
	var req model.CreateSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created := &model.Supply{
		Name:        req.Name,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		Unit:        req.Unit,
		Price:       req.Price,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		SupplierID:  req.SupplierID,
		Status:      "active",
	}
	if err := h.service.CreateSupply(c.Request.Context(), created); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) GetSupply(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid supply ID"))
		return
	}

	found, err := h.service.GetSupply(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) UpdateSupply(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid supply ID"))
		return
	}

	existing, err := h.service.GetSupply(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	var req model.CreateSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	existing.Name = req.Name
	existing.Stock = req.Stock
	existing.MinStock = req.MinStock
	existing.Unit = req.Unit
	existing.Price = req.Price
	existing.Description = req.Description
	existing.CategoryID = req.CategoryID
	existing.SupplierID = req.SupplierID

	if err := h.service.UpdateSupply(c.Request.Context(), existing); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(existing))
}

func (h *Handler) ListSupplies(c *gin.Context) {
	supplies, err := h.service.ListSupplies(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(supplies))
}

// Alerts lists supplies at or below their minimum threshold.
func (h *Handler) Alerts(c *gin.Context) {
	supplies, err := h.service.PendingAlerts(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(supplies))
}

func (h *Handler) RecordUsage(c *gin.Context) {
	var req model.ManualUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.ConsumeManual(c.Request.Context(), &req); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{"supply_id": req.SupplyID, "quantity": req.Quantity}))
}

func (h *Handler) ListUsage(c *gin.Context) {
	var filters model.UsageFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	records, err := h.service.ListUsage(c.Request.Context(), &filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}
