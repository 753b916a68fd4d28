package handlers

import (
	"net/http"

	"tably/utils"

	"github.com/gin-gonic/gin"
)

// GetReservation returns one reservation record.
func (hb *HandlerBundle) GetReservation(c *gin.Context) {
	res, err := hb.Ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListUserReservations returns a user's reservations, newest first.
func (hb *HandlerBundle) ListUserReservations(c *gin.Context) {
	all, err := hb.Ledger.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": all})
}

// CancelReservation cancels a reservation on behalf of its owner.
func (hb *HandlerBundle) CancelReservation(c *gin.Context) {
	var input struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	res, err := hb.Ledger.Cancel(c.Request.Context(), c.Param("id"), input.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
