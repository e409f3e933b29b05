package response

import (
	"taquilla/internal/shared/errs"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps an application error onto the status its code calls for. Internal
// errors never leak their cause to the client.
func RespondError(c *gin.Context, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)

	message := errs.MessageOf(err)
	if code == errs.Internal {
		message = "internal server error"
		_ = c.Error(err)
		logger.GetDefault().LogHTTPError(c, err, status)
	}

	RespondJSON(c, "error", status, message, nil, gin.H{"code": code})
}
