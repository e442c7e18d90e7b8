package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	billinghandler "mgm-billing/internal/services/billing/handler"
)

type BillingHTTPHandler struct {
	billing *billinghandler.BillingHandler
}

func NewBillingHTTPHandler(billing *billinghandler.BillingHandler) *BillingHTTPHandler {
	return &BillingHTTPHandler{
		billing: billing,
	}
}

// Quote prices a draft bill without saving anything.
func (h *BillingHTTPHandler) Quote(c *gin.Context) {
	var req billinghandler.QuoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	quote, err := h.billing.Quote(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("quote calculated successfully", quote))
}

func (h *BillingHTTPHandler) CreateSale(c *gin.Context) {
	var req billinghandler.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.billing.CreateSale(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("bill saved successfully", result))
}
