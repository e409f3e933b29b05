package inventory

import (
	"net/http"

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

// PUBLIC

func (c *Controller) GetAvailability(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	availability, err := c.service.Availability(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", availability, nil)
}

// ADMIN

func (c *Controller) CreatePresentation(ctx *gin.Context) {
	var req CreatePresentationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	presentation, err := c.service.CreatePresentation(ctx.Request.Context(), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Presentation created successfully", presentation, nil)
}

func (c *Controller) UpdatePresentation(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req UpdatePresentationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	presentation, err := c.service.UpdatePresentation(ctx.Request.Context(), id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Presentation updated successfully", presentation, nil)
}

func (c *Controller) CreateTier(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req CreateTierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	tier, err := c.service.CreateTier(ctx.Request.Context(), id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Pricing tier created successfully", tier, nil)
}

func (c *Controller) GenerateSeats(ctx *gin.Context) {
	id, err := request.UUIDParam(ctx, "id")
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	var req GenerateSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	result, err := c.service.GenerateSeats(ctx.Request.Context(), id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats generated successfully", result, nil)
}
