package handlers

import (
	"net/http"

	"tably/utils"

	"github.com/gin-gonic/gin"
)

// GetUserProfile returns one user profile.
func (hb *HandlerBundle) GetUserProfile(c *gin.Context) {
	p, err := hb.Profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateUserPreferences merges dietary and cuisine preferences into a
// profile.
func (hb *HandlerBundle) UpdateUserPreferences(c *gin.Context) {
	var input struct {
		Dietary  []string `json:"dietary"`
		Cuisines []string `json:"cuisines"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	p, err := hb.Profiles.UpdatePreferences(c.Request.Context(), c.Param("id"), input.Dietary, input.Cuisines)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
