package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"finance_ledger/internal/domain"
	"finance_ledger/internal/repository"
	"finance_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	txns, err := h.Ledger.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if txns == nil {
		txns = []*domain.Transaction{}
	}

	c.JSON(http.StatusOK, txns)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	tx, err := h.Ledger.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var in service.CreateInput
	if err := c.BindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	tx, err := h.Ledger.Create(c.Request.Context(), userID, in)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var in service.UpdateInput
	if err := c.BindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	tx, err := h.Ledger.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	tx, err := h.Ledger.Delete(c.Request.Context(), userID, id)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (h *Handler) FilterTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txns, err := h.Ledger.Filter(c.Request.Context(), userID, filter)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}
	if txns == nil {
		txns = []*domain.Transaction{}
	}

	c.JSON(http.StatusOK, txns)
}

func (h *Handler) Summary(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	s, err := h.Ledger.Summary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, s)
}

// parseFilter reads the optional filter predicates. Date bounds are
// inclusive; `to` is widened to the end of its day.
func parseFilter(c *gin.Context) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter

	if v := c.Query("type"); v != "" {
		f.Type = domain.TransactionType(v)
		if !f.Type.Valid() {
			return f, errors.New("type must be income or expense")
		}
	}
	f.Category = c.Query("category")

	if v := c.Query("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, errors.New("from must be YYYY-MM-DD")
		}
		f.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, errors.New("to must be YYYY-MM-DD")
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}

	return f, nil
}

func (h *Handler) writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction does not exist"})
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
	case errors.Is(err, service.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be income or expense"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
	}
}
