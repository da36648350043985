package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
)

// RespondWithError writes err as an error envelope. Errors that are not
// AppErrors become a generic 500 and the cause is logged, not returned.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		logger.WithComponent("server").WithContext(c.Request.Context()).
			Error("unhandled error", logger.Fields(logger.FieldError, err.Error(), "path", c.Request.URL.Path))
		appErr = apperrors.Internal(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
