package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mgm-billing/config"
	"mgm-billing/internal/invoice"
	historyhandler "mgm-billing/internal/services/history/handler"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type HistoryHTTPHandler struct {
	history *historyhandler.HistoryHandler
	profile config.ShopProfile
	loc     *time.Location
}

func NewHistoryHTTPHandler(history *historyhandler.HistoryHandler, profile config.ShopProfile, loc *time.Location) *HistoryHTTPHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryHTTPHandler{
		history: history,
		profile: profile,
		loc:     loc,
	}
}

func bindRange(c *gin.Context) (historyhandler.RangeQuery, bool) {
	var query historyhandler.RangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return query, false
	}
	return query, true
}

func (h *HistoryHTTPHandler) ListBills(c *gin.Context) {
	query, ok := bindRange(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bills, err := h.history.ListBills(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("bills retrieved successfully", bills, gin.H{"total": len(bills)}))
}

func (h *HistoryHTTPHandler) GetBill(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bill, err := h.history.GetBill(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("bill retrieved successfully", bill))
}

// PrintBill returns the printable invoice layout for a saved bill.
func (h *HistoryHTTPHandler) PrintBill(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	bill, err := h.history.GetBill(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("invoice generated successfully", invoice.Build(h.profile, *bill, h.loc)))
}

func (h *HistoryHTTPHandler) ExportBills(c *gin.Context) {
	query, ok := bindRange(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	buf, filename, err := h.history.ExportBills(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *HistoryHTTPHandler) ListExchanges(c *gin.Context) {
	query, ok := bindRange(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	records, err := h.history.ListExchanges(ctx, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("exchanges retrieved successfully", records, gin.H{"total": len(records)}))
}

func (h *HistoryHTTPHandler) PrintExchange(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	records, err := h.history.ExchangesByInvoice(ctx, c.Param("invoice"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("voucher generated successfully", invoice.BuildPayout(h.profile, records, h.loc)))
}

func (h *HistoryHTTPHandler) Dashboard(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := h.history.Dashboard(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("dashboard retrieved successfully", summary))
}
