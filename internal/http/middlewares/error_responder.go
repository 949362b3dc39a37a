package middlewares

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/geocoder89/blogapi/internal/apperr"
	"github.com/gin-gonic/gin"
)

const genericMessage = "Something went very wrong!"

type errorBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorResponder renders the last error attached with ctx.Error once the
// chain has finished. Handlers and guards never write error bodies.
// Unexpected errors are logged; in prod their message is replaced.
func ErrorResponder(log *slog.Logger, env string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if len(ctx.Errors) == 0 || ctx.Writer.Written() {
			return
		}

		err := ctx.Errors.Last().Err
		kind, message, expected := apperr.Classify(err)

		var appErr *apperr.Error
		isAppErr := errors.As(err, &appErr)

		if !expected {
			log.ErrorContext(ctx.Request.Context(), "unhandled_error",
				"err", err,
				"request_id", RequestIDFrom(ctx),
				"path", ctx.Request.URL.Path,
			)
			// messages of typed internal errors are written for clients
			if env == "prod" && !isAppErr {
				message = genericMessage
			}
		}

		status := "fail"
		if kind.Status() >= http.StatusInternalServerError {
			status = "error"
		}

		var details any
		if isAppErr {
			details = appErr.Details
		}

		ctx.AbortWithStatusJSON(kind.Status(), errorBody{
			Status:    status,
			Message:   message,
			RequestID: RequestIDFrom(ctx),
			Details:   details,
		})
	}
}

// Recovery turns a panic into an internal error for ErrorResponder.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		_ = ctx.Error(apperr.Internal(genericMessage, fmt.Errorf("panic: %v", recovered)))
		ctx.Abort()
	})
}

// NotFound handles unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		_ = ctx.Error(apperr.NotFound(fmt.Sprintf("Can't find %s on this server", ctx.Request.URL.Path)))
		ctx.Abort()
	}
}
