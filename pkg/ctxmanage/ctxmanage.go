package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const TraceIDKey = "trace_id"

// GetTraceIdOfRequest returns the trace id set by middleware.Logger, generating
// one on the spot if the middleware did not run (e.g. in tests).
func GetTraceIdOfRequest(c *gin.Context) string {
	v, ok := c.Get(TraceIDKey)
	if !ok {
		return uuid.NewString()
	}
	traceId, ok := v.(string)
	if !ok || traceId == "" {
		return uuid.NewString()
	}
	return traceId
}
