package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cortex-backend/internal/platform/apierr"
)

var errInternal = errors.New("internal server error")

// Fail writes err as the error envelope. *apierr.Error keeps its status, code
// and meta; anything else becomes an opaque 500. The cause is recorded on the
// gin context for the request logger, and 5xx messages are never sent out.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	ae, ok := apierr.As(err)
	if !ok {
		RespondError(c, http.StatusInternalServerError, "internal_error", errInternal)
		return
	}
	var msgErr error = ae
	if ae.Status >= http.StatusInternalServerError {
		msgErr = errInternal
	}
	if len(ae.Meta) == 0 {
		RespondError(c, ae.Status, ae.Code, msgErr)
		return
	}
	body := make(gin.H, len(ae.Meta)+2)
	for k, v := range ae.Meta {
		body[k] = v
	}
	body["message"] = msgErr.Error()
	body["code"] = ae.Code
	c.JSON(ae.Status, gin.H{"error": body})
}

// Abort is Fail for middleware: it stops the handler chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}
