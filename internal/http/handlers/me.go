package handlers

import (
	"net/http"

	"finance_ledger/internal/repository"

	"github.com/gin-gonic/gin"
)

// Me returns the current user's profile including the cached balance.
// The balance is the derived value maintained by the consistency
// layer; /transactions/summary recomputes it from the set.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	repo := repository.NewUserRepository(h.DB)
	user, err := repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"balance":    user.Balance,
		"created_at": user.CreatedAt,
	})
}
