package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Context keys shared by the middleware chain and the endpoint handlers.
const (
	DBKey     = "db"
	UserIDKey = "user_id"
	RoleIDKey = "role_id"
)

// DatabaseMiddleware injects the shared gorm handle into the request context
// so handlers do not hold package-level database state.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the request-scoped gorm handle, or nil when absent.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(DBKey)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// GetUserID returns the authenticated user ID set by ValidateLoginToken.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		return 0, false
	}
	return id, true
}

// GetRoleID returns the authenticated user's role ID set by ValidateLoginToken.
func GetRoleID(c *gin.Context) (uint32, bool) {
	v, ok := c.Get(RoleIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint32)
	if !ok {
		return 0, false
	}
	return id, true
}
