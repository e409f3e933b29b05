package orders

import (
	"net/http"

	"taquilla/internal/domain"
	"taquilla/internal/shared/errs"
	"taquilla/internal/shared/middleware"
	"taquilla/internal/shared/utils/request"
	"taquilla/internal/shared/utils/response"
	"taquilla/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetMyOrders reads the buyer's mirror
func (c *Controller) GetMyOrders(ctx *gin.Context) {
	identity, ok := middleware.CurrentIdentity(ctx)
	if !ok {
		response.RespondError(ctx, errs.E(errs.Unauthenticated, "authentication required"))
		return
	}

	orders, err := c.service.ListUserOrders(ctx.Request.Context(), identity.UserID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Orders retrieved successfully", orders, nil)
}

// ADMIN

func (c *Controller) ListOrders(ctx *gin.Context) {
	filter := store.OrderFilter{
		Status: domain.OrderStatus(ctx.Query("status")),
		Limit:  request.IntQuery(ctx, "limit", 100),
		Offset: request.IntQuery(ctx, "offset", 0),
	}
	if raw := ctx.Query("presentation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(ctx, errs.Wrap(errs.InvalidArgument, err, "invalid presentation ID"))
			return
		}
		filter.PresentationID = &id
	}

	orders, err := c.service.ListOrders(ctx.Request.Context(), filter)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Orders retrieved successfully", orders, nil)
}

func (c *Controller) VoidOrders(ctx *gin.Context) {
	var req VoidRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	ids, err := request.ParseUUIDs(req.OrderIDs)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	result, err := c.service.Void(ctx.Request.Context(), ids)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Orders voided", result, nil)
}

func (c *Controller) VoidAllOrders(ctx *gin.Context) {
	result, err := c.service.VoidAll(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "All orders voided", result, nil)
}
