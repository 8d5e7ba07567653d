package handler

import (
	"net/http"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/service"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PromoHandler struct {
	service service.PromoService
}

func NewPromoHandler(service service.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

func (h *PromoHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("promos/preview", h.Preview)
	}
}

func (h *PromoHandler) Preview(c *gin.Context) {
	var req model.PromoPreviewRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		HandleError(c, &apperrors.ValidationError{Field: "subtotal", Reason: "not a valid amount"}, "Preview")
		return
	}

	preview, err := h.service.Preview(c, req.OrganizationID, req.Code, subtotal)
	if err != nil {
		HandleError(c, err, "Preview")
		return
	}

	c.JSON(http.StatusOK, preview)
}
