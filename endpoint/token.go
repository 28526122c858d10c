package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

// sessionWithRole is a session row joined with the owning user's role name.
type sessionWithRole struct {
	model.Session
	Role string `json:"role"`
}

// lookupSessionWithRole resolves an unexpired session together with its role
// name. Sessions of soft-deleted users must not validate.
func lookupSessionWithRole(db *gorm.DB, token string) (sessionWithRole, error) {
	var row sessionWithRole
	err := db.Table("sessions").
		Select("sessions.*, roles.name as role").
		Joins("JOIN users ON sessions.user_id = users.id").
		Joins("JOIN roles ON users.role_id = roles.id").
		Where("session_token = ? AND expires_at > ? AND sessions.deleted_at IS NULL AND users.deleted_at IS NULL", token, time.Now()).
		First(&row).Error
	return row, err
}

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Validate if the session token is valid and not expired
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	token := c.GetHeader("session-token")
	if token == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Invalid session token", Err: fmt.Errorf("session-token header missing")})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	row, err := lookupSessionWithRole(db, token)
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session not found", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Valid session token",
		Data: row,
	})
}
