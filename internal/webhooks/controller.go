package webhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"taquilla/internal/shared/utils/response"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

type Controller struct {
	processor *Processor
	secret    string
	validator *validator.Validate
	log       *logger.Logger
}

func NewController(processor *Processor, secret string, log *logger.Logger) *Controller {
	return &Controller{
		processor: processor,
		secret:    secret,
		validator: validator.New(),
		log:       log,
	}
}

func (c *Controller) PaymentEvent(ctx *gin.Context) {
	// The signature covers the raw bytes, so read them before decoding
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.log.LogWebhookRejected(ctx.Request.Context(), "body too large", ctx.ClientIP())
		}
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Unreadable request body", nil, nil)
		return
	}

	if err := VerifySignature(body, ctx.GetHeader(SignatureHeader), c.secret); err != nil {
		c.log.LogWebhookRejected(ctx.Request.Context(), err.Error(), ctx.ClientIP())
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Invalid signature", nil, nil)
		return
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		c.log.LogWebhookRejected(ctx.Request.Context(), "malformed payload", ctx.ClientIP())
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&n); err != nil {
		c.log.LogWebhookRejected(ctx.Request.Context(), "invalid payload", ctx.ClientIP())
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	outcome, err := c.processor.Handle(ctx.Request.Context(), n)
	if err != nil {
		c.log.ErrorWithContext(ctx.Request.Context(), "Webhook could not be recorded", err, map[string]interface{}{
			"reference": n.Reference,
		})
		response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Event not recorded, retry later", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Event received", AckResponse{Reference: n.Reference, Outcome: outcome}, nil)
}
