package reservations

import (
	"net/http"
	"time"

	"taquilla/internal/shared/errs"
	"taquilla/internal/shared/middleware"
	"taquilla/internal/shared/utils/request"
	"taquilla/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) HoldSeats(ctx *gin.Context) {
	identity, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		response.RespondError(ctx, errs.E(errs.Unauthenticated, "authentication required"))
		return
	}

	presentationID, err := request.UUIDParam(ctx, "id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req HoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	seatIDs, err := request.ParseUUIDs(req.SeatIDs)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	result, err := c.service.Hold(ctx.Request.Context(), presentationID, seatIDs, identity.HolderKey(req.HolderSessionID))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	result.HolderSessionID = req.HolderSessionID

	message := "Seats held for " + (time.Duration(result.HoldSeconds) * time.Second).String()
	response.RespondJSON(ctx, "success", http.StatusCreated, message, result, nil)
}

func (c *Controller) ReleaseSeats(ctx *gin.Context) {
	identity, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		response.RespondError(ctx, errs.E(errs.Unauthenticated, "authentication required"))
		return
	}

	presentationID, err := request.UUIDParam(ctx, "id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req ReleaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	seatIDs, err := request.ParseUUIDs(req.SeatIDs)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	released, err := c.service.Release(ctx.Request.Context(), presentationID, seatIDs, identity.HolderKey(req.HolderSessionID))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats released successfully", ReleaseResult{Released: released}, nil)
}
