package handlers

import (
	"errors"
	"net/http"

	"tably/services/availability"
	"tably/services/catalog"
	"tably/services/ledger"
	"tably/services/orchestrator"
	"tably/services/profile"
	"tably/utils"

	"github.com/gin-gonic/gin"
)

// HandlerBundle carries the services the HTTP layer dispatches into.
type HandlerBundle struct {
	Orchestrator *orchestrator.Orchestrator
	Catalog      *catalog.Service
	Engine       *availability.Engine
	Ledger       *ledger.Service
	Profiles     *profile.Resolver
}

// respondErr maps domain errors onto HTTP statuses. Anything unmapped
// is a 500 with a generic body.
func respondErr(c *gin.Context, err error) {
	var (
		restNotFound *catalog.NotFoundError
		resNotFound  *ledger.NotFoundError
		userNotFound *profile.NotFoundError
		notOwner     *ledger.NotOwnerError
		status       *ledger.StatusConflictError
		slotConflict *ledger.SlotConflictError
		holdExpired  *ledger.HoldExpiredError
	)
	switch {
	case errors.As(err, &restNotFound), errors.As(err, &resNotFound), errors.As(err, &userNotFound):
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	case errors.As(err, &notOwner):
		utils.JSONError(c, http.StatusForbidden, "not allowed", err.Error())
	case errors.As(err, &status), errors.As(err, &slotConflict):
		utils.JSONError(c, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &holdExpired):
		utils.JSONError(c, http.StatusGone, "hold expired", err.Error())
	case errors.Is(err, orchestrator.ErrSessionExpired):
		utils.JSONError(c, http.StatusGone, "session expired", "start a new session")
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "please try again later")
	}
}
