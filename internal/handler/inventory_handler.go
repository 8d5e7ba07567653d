package handler

import (
	"net/http"
	"strconv"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(service service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

func (h *InventoryHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("concessions/:id", h.GetItem)
		router.POST("concessions/:id/restock", h.Restock)
		router.POST("concessions/:id/adjust", h.Adjust)
		router.GET("concessions/:id/history", h.History)
	}
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetItem(c, id)
	if err != nil {
		HandleError(c, err, "GetItem")
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) Restock(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	var req model.RestockRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	history, err := h.service.Restock(c, id, req.Quantity)
	if err != nil {
		HandleError(c, err, "Restock")
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	var req model.AdjustStockRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	history, err := h.service.Adjust(c, id, req.Delta)
	if err != nil {
		HandleError(c, err, "Adjust")
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *InventoryHandler) History(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.service.History(c, id, limit)
	if err != nil {
		HandleError(c, err, "History")
		return
	}

	c.JSON(http.StatusOK, history)
}
