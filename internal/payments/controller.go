package payments

import (
	"net/http"

	"taquilla/internal/domain"
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

func (c *Controller) CreateIntent(ctx *gin.Context) {
	identity, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		response.RespondError(ctx, errs.E(errs.Unauthenticated, "authentication required"))
		return
	}

	var req CreateIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	payload, err := req.ToPayload()
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if payload.HolderSessionID != "" {
		payload.HolderSessionID = identity.HolderKey(payload.HolderSessionID)
	}

	result, err := c.service.CreateIntent(ctx.Request.Context(), identity.UserID, req.Buyer.ToContact(), payload)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Payment intent created, redirect the buyer to pay", result, nil)
}

// GetIntent reports the status shown on the confirmation page. It is read-only; the
// webhook is the only thing that moves an intent.
func (c *Controller) GetIntent(ctx *gin.Context) {
	identity, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		response.RespondError(ctx, errs.E(errs.Unauthenticated, "authentication required"))
		return
	}

	status, err := c.service.Get(ctx.Request.Context(), identity, ctx.Param("reference"))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, status.Message, status, nil)
}

// ADMIN

func (c *Controller) ListIntents(ctx *gin.Context) {
	status := domain.IntentStatus(ctx.Query("status"))
	limit := request.IntQuery(ctx, "limit", defaultListLimit)

	intents, err := c.service.ListByStatus(ctx.Request.Context(), status, limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment intents retrieved successfully", intents, nil)
}
