package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/cortex-backend/internal/pkg/ctxutil"
)

// AttachRequestContext seeds RequestData with the client address. Auth fills
// in the identity later on the same struct.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &ctxutil.RequestData{ClientIP: c.ClientIP()}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			rd.RequestID = td.RequestID
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}
