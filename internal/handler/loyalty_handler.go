package handler

import (
	"net/http"

	"cinema-booking-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type LoyaltyHandler struct {
	service service.LoyaltyService
}

func NewLoyaltyHandler(service service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{service: service}
}

func (h *LoyaltyHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("customers/:customer_id/loyalty", h.Account)
		router.POST("customers/:customer_id/loyalty/welcome", h.WelcomeBonus)
	}
}

func (h *LoyaltyHandler) Account(c *gin.Context) {
	customerID, ok := ParamInt64(c, "customer_id")
	if !ok {
		return
	}

	account, err := h.service.Account(c, customerID)
	if err != nil {
		HandleError(c, err, "Account")
		return
	}

	c.JSON(http.StatusOK, account)
}

type welcomeBonusRequest struct {
	OrganizationID int64 `json:"organization_id" binding:"required"`
	Points         int   `json:"points" binding:"required,min=1"`
}

func (h *LoyaltyHandler) WelcomeBonus(c *gin.Context) {
	customerID, ok := ParamInt64(c, "customer_id")
	if !ok {
		return
	}

	var req welcomeBonusRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	txn, err := h.service.GrantWelcomeBonus(c, req.OrganizationID, customerID, req.Points)
	if err != nil {
		HandleError(c, err, "WelcomeBonus")
		return
	}

	c.JSON(http.StatusOK, txn)
}
