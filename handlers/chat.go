package handlers

import (
	"net/http"

	"tably/utils"

	"github.com/gin-gonic/gin"
)

// StartChatSession opens a new conversation for a contact signal.
func (hb *HandlerBundle) StartChatSession(c *gin.Context) {
	var input struct {
		Contact string `json:"contact" binding:"required"`
		Name    string `json:"name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	reply, err := hb.Orchestrator.StartSession(c.Request.Context(), input.Contact, input.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// ChatMessage feeds one user message into an existing session.
func (hb *HandlerBundle) ChatMessage(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var input struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	reply, err := hb.Orchestrator.HandleMessage(c.Request.Context(), sessionID, input.Message)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// EndChatSession closes a session ahead of its inactivity timeout.
func (hb *HandlerBundle) EndChatSession(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if err := hb.Orchestrator.EndSession(c.Request.Context(), sessionID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}
