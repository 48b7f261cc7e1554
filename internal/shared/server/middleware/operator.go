package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const operatorIDKey = "operatorId"

// EntryIDKey is the gin context key handlers use to tag the entry a request
// touched, so the request log can carry it.
const EntryIDKey = "entryId"

// Operator captures the operator identity forwarded by the intranet front end.
// Authentication itself happens upstream; this subsystem only records who acted.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Operator-Id"))
		if id == "" {
			id = "unknown"
		}
		c.Set(operatorIDKey, id)
		c.Next()
	}
}

// OperatorIDFromContext fetches the operator ID stored by Operator middleware.
func OperatorIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(operatorIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
