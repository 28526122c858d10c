package middleware

import (
	"fmt"
	"net/http"
	"os"

	"github.com/medicloudhq/portal/util"
	"github.com/gin-gonic/gin"
)

// setCorsHeaders applies the portal's CORS policy to the response.
func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization")
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Content-Type", "application/json")
}

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// tokenValidator checks the Authorization header against the expected bearer
// value. OPTIONS requests bypass validation. On mismatch it writes a 401 and
// returns false.
func tokenValidator(c *gin.Context, expected string) bool {
	if c.Request.Method == "OPTIONS" {
		return true
	}
	if c.GetHeader("Authorization") != expected {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Invalid API token",
			Err: fmt.Errorf("authorization header mismatch"),
		})
		c.Abort()
		return false
	}
	return true
}

// ValidateAPIToken guards service-to-service endpoints with the static
// bearer token from API_TOKEN.
func ValidateAPIToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := "Bearer " + os.Getenv("API_TOKEN")
		if !tokenValidator(c, expected) {
			return
		}
		c.Next()
	}
}
