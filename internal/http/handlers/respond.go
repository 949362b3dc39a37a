package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const statusSuccess = "success"

// fail hands err to the error responder middleware and stops the chain.
func fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}

func respondDoc(ctx *gin.Context, status int, doc any) {
	RespondJSONWithETag(ctx, status, gin.H{
		"status": statusSuccess,
		"data":   gin.H{"doc": doc},
	})
}

func respondNoContent(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
}

// requestedAt is the time the request entered the router.
func requestedAt(ctx *gin.Context) string {
	t := ctx.GetTime("requested_at")
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
