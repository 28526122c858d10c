package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

// ErrUserEmailAlreadyExists is returned when an update would reuse another
// account's email address.
var ErrUserEmailAlreadyExists = errors.New("email already exists")

type UpdateUserRequest struct {
	Name     string `json:"name" example:"Amelia Hart"`
	Email    string `json:"email" example:"amelia@example.com"`
	Password string `json:"password" example:"newdeskpass12"`
}

func (r UpdateUserRequest) empty() bool {
	return r.Name == "" && r.Email == "" && r.Password == ""
}

// bindUserUpdate binds the payload and rejects requests that would change
// nothing.
func bindUserUpdate(c *gin.Context) (UpdateUserRequest, bool) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid request payload", Err: err})
		return UpdateUserRequest{}, false
	}
	if req.empty() {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field (name, email, or password) must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
		return UpdateUserRequest{}, false
	}
	return req, true
}

// parseIDParam parses the "id" path parameter into a uint.
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("ID must be a valid integer")
	}
	if id <= 0 {
		return 0, fmt.Errorf("ID must be a positive integer")
	}
	return uint(id), nil
}

// emailTakenByOther reports whether a different account already uses the
// address.
func emailTakenByOther(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var n int64
	if err := db.Model(&model.User{}).Where("email = ? AND id != ?", email, excludeID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// findUserOrRespond loads a user by ID, answering 404 or 500 on failure.
func findUserOrRespond(c *gin.Context, db *gorm.DB, id uint) (*model.User, bool) {
	var user model.User
	switch err := db.First(&user, id).Error; {
	case err == gorm.ErrRecordNotFound:
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
		return nil, false
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return nil, false
	}
	return &user, true
}

// applyUserUpdate writes the requested changes and answers the request.
// Existing sessions stay valid after a password change so an admin reset
// does not kick the user out mid-session.
func applyUserUpdate(c *gin.Context, db *gorm.DB, user *model.User, req UpdateUserRequest) {
	if req.Email != "" && req.Email != user.Email {
		taken, err := emailTakenByOther(db, req.Email, user.ID)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user fields", Err: err})
			return
		}
		if taken {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: ErrUserEmailAlreadyExists})
			return
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Password != "" {
		// Updates store the HMAC digest; it is upgraded to Argon2 on the
		// user's next login.
		user.Password = util.HashPassword(req.Password)
	}

	if err := db.Save(user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return
	}

	// Keep the email cache used by request logging in step.
	util.UserEmailCacheSet(user.ID, user.Email)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated successfully", Data: user})
}

// UpdateUser godoc
// @Summary      Update own profile
// @Description  Change the signed-in account's name, email, or password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body UpdateUserRequest true "Fields to change"
// @Success      200 {object} util.APIResponse "Profile updated"
// @Failure      400 {object} util.APIResponse "Validation failed or email taken"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /user [patch]
func UpdateUser(c *gin.Context) {
	req, ok := bindUserUpdate(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("user id not found in context")})
		return
	}

	user, ok := findUserOrRespond(c, db, userID)
	if !ok {
		return
	}
	applyUserUpdate(c, db, user, req)
}

// UpdateUserByID godoc
// @Summary      Update a staff account (admin only)
// @Description  Change another account's name, email, or password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Param        request body UpdateUserRequest true "Fields to change"
// @Success      200 {object} util.APIResponse "Profile updated"
// @Failure      400 {object} util.APIResponse "Validation failed or email taken"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /user/{id} [patch]
func UpdateUserByID(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	req, ok := bindUserUpdate(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, ok := findUserOrRespond(c, db, uid)
	if !ok {
		return
	}
	applyUserUpdate(c, db, user, req)
}

// listUsersParams captures the pagination and search controls for ListUsers.
type listUsersParams struct {
	limit   int
	cursor  uint
	offset  int
	keyword string
}

func parseListUsersParams(c *gin.Context) listUsersParams {
	return listUsersParams{
		limit:   parsePositiveInt(c.Query("limit"), 10, 100),
		cursor:  parseCursor(c.Query("cursor")),
		offset:  parsePositiveInt(c.Query("offset"), 0, 0),
		keyword: c.Query("keyword"),
	}
}

// scope returns the base user query with the keyword filter applied.
func (p listUsersParams) scope(db *gorm.DB) *gorm.DB {
	q := db.Model(&model.User{})
	if p.keyword != "" {
		kw := "%" + p.keyword + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", kw, kw)
	}
	return q
}

// window applies the cursor or offset and fetches one row past the limit so
// the caller can tell whether another page exists.
func (p listUsersParams) window(q *gorm.DB) *gorm.DB {
	switch {
	case p.cursor > 0:
		q = q.Where("id > ?", p.cursor)
	case p.offset > 0:
		q = q.Offset(p.offset)
	}
	return q.Order("id ASC").Limit(p.limit + 1)
}

// parsePositiveInt parses a positive integer, falling back to defaultVal
// when the value is missing or unusable. A max of 0 means uncapped.
func parsePositiveInt(q string, defaultVal, max int) int {
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// parseCursor reads a positive ID cursor, returning 0 when absent or invalid.
func parseCursor(q string) uint {
	v, err := strconv.ParseUint(q, 10, 32)
	if err != nil || v == 0 {
		return 0
	}
	return uint(v)
}

// ListUsers godoc
// @Summary      List staff accounts (admin only)
// @Description  Page through the account directory by ID cursor, with optional name or email search
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        limit query int false "Page size (default 10, max 100)"
// @Param        cursor query int false "Resume after this user ID"
// @Param        keyword query string false "Name or email fragment"
// @Success      200 {object} util.APIResponse{data=object} "Users retrieved"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /user [get]
func ListUsers(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	p := parseListUsersParams(c)

	// Total counts every match; pagination only shapes the page below.
	var total int64
	if err := p.scope(db).Count(&total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count users", Err: err})
		return
	}

	var users []model.User
	if err := p.window(p.scope(db)).Find(&users).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve users", Err: err})
		return
	}

	hasMore := len(users) > p.limit
	if hasMore {
		users = users[:p.limit]
	}
	var nextCursor *uint
	if hasMore {
		lastID := users[len(users)-1].ID
		nextCursor = &lastID
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Users retrieved",
		Data: map[string]interface{}{
			"users":         users,
			"total":         total,
			"total_fetched": len(users),
			"has_more":      hasMore,
			"next_cursor":   nextCursor,
		},
	})
}

// GetUserInfo godoc
// @Summary      Get one staff account (admin only)
// @Description  Load a single account by ID
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User retrieved"
// @Failure      400 {object} util.APIResponse "Malformed user id"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /user/{id} [get]
func GetUserInfo(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, ok := findUserOrRespond(c, db, uid)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: user})
}

// removeUserAndSessions soft-deletes the user and their sessions in one
// transaction.
func removeUserAndSessions(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// DeleteUser godoc
// @Summary      Remove a staff account (admin only)
// @Description  Soft-delete the account and revoke its open sessions
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User deleted"
// @Failure      400 {object} util.APIResponse "Malformed user id"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /user/{id} [delete]
func DeleteUser(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if err := removeUserAndSessions(db, uid); err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete user", Err: err})
		return
	}

	// Redis copies of the deleted sessions go too, so the tokens stop
	// validating immediately.
	_ = util.InvalidateUserSessions(uid)
	util.UserEmailCacheDelete(uid)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User deleted"})
}
