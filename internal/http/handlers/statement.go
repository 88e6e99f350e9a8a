package handlers

import (
	"net/http"
	"time"

	"finance_ledger/internal/domain"
	"finance_ledger/internal/reports"

	"github.com/gin-gonic/gin"
)

// Statement exports the user's transactions over a date range as CSV
// or PDF. Defaults to the last 30 days.
func (h *Handler) Statement(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		end := time.Now()
		fromStr = end.AddDate(0, 0, -29).Format("2006-01-02")
		toStr = end.Format("2006-01-02")
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return
	}
	toEnd := to.Add(24*time.Hour - time.Nanosecond)

	txns, err := h.Ledger.Filter(c.Request.Context(), userID, domain.TransactionFilter{
		From: &from,
		To:   &toEnd,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	st := reports.Build(from, to, txns)

	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", `attachment; filename="statement.pdf"`)
		if err := st.WritePDF(c.Writer); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="statement.csv"`)
		if err := st.WriteCSV(c.Writer); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or pdf"})
	}
}
