package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicloudhq/portal/util"
)

// EndpointCallLogger records every request in the security audit trail once
// the handler chain has finished. Identity fields are filled when
// ValidateLoginToken ran earlier in the chain; anonymous requests log with
// user ID zero.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		userID, _ := GetUserID(c)

		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventEndpointCall,
			UserID:    strconv.FormatUint(uint64(userID), 10),
			Email:     util.GetUserEmail(GetDB(c), userID),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   callDetails(c, status, time.Since(start)),
		})
	}
}

// callDetails collects the structured fields persisted with the event. The
// route appears twice: path is the registered pattern, raw_path the concrete
// URL the client sent.
func callDetails(c *gin.Context, status int, elapsed time.Duration) map[string]interface{} {
	details := map[string]interface{}{
		"method":      c.Request.Method,
		"path":        c.FullPath(),
		"raw_path":    c.Request.URL.Path,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
		"query":       c.Request.URL.RawQuery,
	}
	if userID, ok := GetUserID(c); ok && userID != 0 {
		details["user_id"] = userID
	}
	if roleID, ok := GetRoleID(c); ok && roleID != 0 {
		details["role_id"] = roleID
	}
	return details
}
