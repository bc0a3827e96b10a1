package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// @Summary      Tariff
// @Tags         billing
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "currency, tiers"
// @Router       /api/v1/billing/tariff [get]
// @Security     BearerAuth
func (h *Handler) getTariff(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Tariff())
}

// @Summary      Price a consumption
// @Tags         billing
// @Produce      json
// @Param        units  query     number  true  "kWh for the billing month"  example(250)
// @Success      200    {object}  models.Quote
// @Failure      400    {object}  map[string]string
// @Router       /api/v1/billing/quote [get]
// @Security     BearerAuth
func (h *Handler) getQuote(c *gin.Context) {
	units, err := decimal.NewFromString(c.Query("units"))
	if err != nil || units.IsNegative() {
		badRequest(c, "units must be a non-negative number")
		return
	}
	c.JSON(http.StatusOK, h.services.Quote(units))
}

// @Summary      Daily usage history
// @Description  Defaults to the current month.
// @Tags         billing
// @Produce      json
// @Param        from  query     string  false  "YYYY-MM-DD"
// @Param        to    query     string  false  "YYYY-MM-DD"
// @Success      200   {object}  map[string]interface{}  "count, days"
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/usage/history [get]
// @Security     BearerAuth
func (h *Handler) getUsageHistory(c *gin.Context) {
	now := time.Now()
	from := c.DefaultQuery("from", now.Format(layoutMonth)+"-01")
	to := c.DefaultQuery("to", now.Format(layoutDate))

	days, err := h.services.History(c.Request.Context(), from, to)
	if err != nil {
		h.logAndJSONError(c, err, "failed to load usage", "usage_history_failed", "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(days), "days": days})
}
