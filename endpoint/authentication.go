package endpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

// Lockout and session lifetime policy for staff accounts.
const (
	maxFailedLogins     = 5
	accountLockDuration = 15 * time.Minute
	sessionTTL          = time.Hour
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"frontdesk@example.com"`
	Password string `json:"password" binding:"required" example:"deskpass12"`
}

type LoginResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role   string `json:"role" example:"Admin"`
	UserID uint   `json:"user_id" example:"1"`
}

// authAttempt carries one login attempt through its checks. Every rejection
// path logs a security event with the client address before responding.
type authAttempt struct {
	c     *gin.Context
	db    *gorm.DB
	email string
	ip    string
	agent string
}

func newAuthAttempt(c *gin.Context, db *gorm.DB, email string) authAttempt {
	return authAttempt{c: c, db: db, email: email, ip: c.ClientIP(), agent: c.Request.UserAgent()}
}

func (a authAttempt) logFailure(reason string) {
	util.LogLoginFailure(util.LoginParams{Email: a.email, IP: a.ip, UserAgent: a.agent, Reason: reason})
}

func (a authAttempt) reject(msg, reason string) {
	a.logFailure(reason)
	util.CallUserError(a.c, util.APIErrorParams{Msg: msg, Err: fmt.Errorf("%s", reason)})
}

func (a authAttempt) fail(msg string, err error, reason string) {
	a.logFailure(reason)
	util.CallServerError(a.c, util.APIErrorParams{Msg: msg, Err: err})
}

// loadUser resolves the account by email. A missing account gets the same
// response as a wrong password so the endpoint does not leak which emails
// are registered.
func (a authAttempt) loadUser() (model.User, bool) {
	var user model.User
	switch err := a.db.Where("email = ?", a.email).First(&user).Error; {
	case err == gorm.ErrRecordNotFound:
		a.reject("Invalid email or password", "user not found")
		return model.User{}, false
	case err != nil:
		a.fail("Database error", err, "database error")
		return model.User{}, false
	}
	return user, true
}

func (a authAttempt) checkLockout(user *model.User) bool {
	if user.LockedUntil == nil || *user.LockedUntil <= time.Now().Unix() {
		return true
	}
	until := time.Unix(*user.LockedUntil, 0)
	a.reject(fmt.Sprintf("Account is locked until %s due to multiple failed login attempts", until.Format(time.RFC3339)), "account locked")
	return false
}

func (a authAttempt) checkPassword(user *model.User, plain string) bool {
	match, err := util.VerifyPassword(plain, user.Password, user.PasswordSalt)
	if err != nil {
		a.fail("Password verification failed", err, "password verification error")
		return false
	}
	if !match {
		a.recordFailedAttempt(user)
		a.reject("Invalid email or password", "invalid password")
		return false
	}
	return true
}

// recordFailedAttempt bumps the failure counter and locks the account once
// it reaches maxFailedLogins.
func (a authAttempt) recordFailedAttempt(user *model.User) {
	user.FailedAttempts++
	if user.FailedAttempts >= maxFailedLogins {
		lockUntil := time.Now().Add(accountLockDuration).Unix()
		user.LockedUntil = &lockUntil
		util.LogAccountLocked(util.AccountLockParams{UserID: user.ID, Email: user.Email, IP: a.ip, Reason: "too many failed login attempts"})
	}
	if err := a.db.Save(user).Error; err != nil {
		a.logFailure("failed to update failed attempts")
	}
}

func (a authAttempt) clearLockout(user *model.User) {
	if user.FailedAttempts == 0 && user.LockedUntil == nil {
		return
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	if err := a.db.Save(user).Error; err != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        a.ip,
			Message:   fmt.Sprintf("Failed to reset failed attempts: %v", err),
		})
	}
}

// upgradeLegacyHash rehashes pre-Argon2 credentials with a fresh salt. The
// plaintext is only available during login, so this is the one place the
// upgrade can happen. Failures are logged and the login proceeds on the old
// digest.
func (a authAttempt) upgradeLegacyHash(user *model.User, plain string) {
	if strings.HasPrefix(user.Password, util.Argon2Prefix) {
		return
	}
	salt, err := util.GenerateSalt()
	if err != nil {
		return
	}
	hashed, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		return
	}
	user.Password = hashed
	user.PasswordSalt = salt
	if err := a.db.Save(user).Error; err != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        a.ip,
			Message:   fmt.Sprintf("Failed to upgrade password hash: %v", err),
		})
		return
	}
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordChanged,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        a.ip,
		Message:   "Upgraded password hash to Argon2",
	})
}

func (a authAttempt) resolveRole(roleID uint32) (model.Role, bool) {
	var role model.Role
	switch err := a.db.First(&role, "id = ?", roleID).Error; {
	case err == gorm.ErrRecordNotFound:
		a.reject("Role not found", "role not found")
		return model.Role{}, false
	case err != nil:
		util.CallServerError(a.c, util.APIErrorParams{Msg: "Database error", Err: err})
		return model.Role{}, false
	}
	return role, true
}

func (a authAttempt) establishSession(user model.User, token string) (model.Session, bool) {
	session := model.Session{
		UserID:       user.ID,
		SessionToken: token,
		ExpiresAt:    time.Now().Add(sessionTTL),
		ClientIP:     a.ip,
		Browser:      a.agent,
	}
	if err := a.db.Create(&session).Error; err != nil {
		a.fail("Failed to record session", err, "session creation failed")
		return model.Session{}, false
	}
	return session, true
}

// issueSessionJWT signs the token handed back to the client. The same string
// is stored as the session key, so validity is bounded by both the JWT exp
// claim and the session row.
func issueSessionJWT(user model.User) (string, error) {
	claims := jwt.MapClaims{
		"email": user.Email,
		"exp":   time.Now().Add(sessionTTL).Unix(),
		"role":  user.RoleID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(util.GetJWTSecretByte())
}

// mirrorSessionToRedis caches the session for fast token validation and
// indexes it in the per-user set used for bulk invalidation. Redis being
// down is not an error; the session row stays authoritative.
func mirrorSessionToRedis(session model.Session, roleID uint32) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	ttl := time.Until(session.ExpiresAt)
	val := fmt.Sprintf("%d:%d", session.UserID, roleID)
	_ = rdb.Set(context.Background(), "session:"+session.SessionToken, val, ttl).Err()
	_ = util.AddSessionToUserSet(session.UserID, session.SessionToken, ttl)
}

// dropSessionFromRedis removes the cached session and its per-user set entry.
func dropSessionFromRedis(userID uint, token string) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	_ = rdb.Del(context.Background(), "session:"+token).Err()
	_ = util.RemoveSessionTokenFromUserSet(userID, token)
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

// Login godoc
// @Summary      Staff login
// @Description  Authenticate a staff account with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body LoginRequest true "Account credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Session opened"
// @Failure      400 {object} util.APIResponse "Bad credentials or locked account"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	attempt := newAuthAttempt(c, db, req.Email)

	user, ok := attempt.loadUser()
	if !ok {
		return
	}
	if !attempt.checkLockout(&user) {
		return
	}
	if !attempt.checkPassword(&user, req.Password) {
		return
	}

	attempt.clearLockout(&user)
	attempt.upgradeLegacyHash(&user, req.Password)

	role, ok := attempt.resolveRole(user.RoleID)
	if !ok {
		return
	}

	token, err := issueSessionJWT(user)
	if err != nil {
		attempt.fail("Could not generate token", err, "token generation failed")
		return
	}

	session, ok := attempt.establishSession(user, token)
	if !ok {
		return
	}
	mirrorSessionToRedis(session, role.ID)

	// A proven client gets a fresh rate limit window. Best-effort, the
	// counter expires on its own anyway.
	_ = middleware.ResetRateLimit(attempt.ip, c.Request.URL.Path)

	util.LogLoginSuccess(util.LoginParams{UserID: user.ID, Email: user.Email, IP: attempt.ip, UserAgent: attempt.agent})
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: token, Role: role.Name, UserID: user.ID},
	})
}

// Logout godoc
// @Summary      Staff logout
// @Description  Invalidate the staff session token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Session closed"
// @Failure      401 {object} util.APIResponse "No session token supplied"
// @Failure      400 {object} util.APIResponse "Unknown session token"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	token := c.GetHeader("session-token")
	if token == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token not provided",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var session model.Session
	if err := db.Where("session_token = ?", token).First(&session).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Session not found", Err: err})
		return
	}

	var user model.User
	if err := db.First(&user, session.UserID).Error; err == nil {
		util.LogLogout(util.LoginParams{UserID: user.ID, Email: user.Email, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	}

	if err := db.Delete(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete session", Err: err})
		return
	}
	dropSessionFromRedis(session.UserID, token)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required" example:"Amelia Hart"`
	Email    string `json:"email" binding:"required,email" example:"amelia@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"deskpass12"`
}

// emailTaken reports whether an active account already uses the address.
func emailTaken(db *gorm.DB, email string) (bool, error) {
	var n int64
	if err := db.Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// signupToken issues the provisional JWT returned from registration. It is
// not a session token; the new account still has to log in.
func signupToken(user model.User) (string, error) {
	claims := jwt.MapClaims{
		"email":   user.Email,
		"exp":     time.Now().Add(sessionTTL).Unix(),
		"role_id": user.RoleID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(util.GetJWTSecretByte())
}

// Signup godoc
// @Summary      Staff signup
// @Description  Register a new staff account for the portal
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SignupRequest true "New account details"
// @Success      200 {object} util.APIResponse{data=string} "Account created"
// @Failure      400 {object} util.APIResponse "Validation failed or email taken"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /signup [post]
func Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	taken, err := emailTaken(db, req.Email)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}
	if taken {
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: fmt.Errorf("email already exists")})
		return
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return
	}
	hashed, err := util.HashPasswordArgon2(req.Password, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	// Self-signup provisions an Admin account. Staff and doctor accounts
	// are created through the admin user endpoints instead.
	user := model.User{
		Name:         req.Name,
		Email:        req.Email,
		Password:     hashed,
		PasswordSalt: salt,
		RoleID:       model.RoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "User signed up successfully",
	})

	tokenString, err := signupToken(user)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Signup successful", Data: tokenString})
}

// VerifyPassword godoc
// @Summary      Re-check own password
// @Description  Confirm the signed-in account's password before a sensitive change
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        password query string true "Password to check"
// @Success      200 {object} util.APIResponse "Password verified"
// @Failure      400 {object} util.APIResponse "Missing password parameter"
// @Failure      401 {object} util.APIResponse "Wrong password or no session"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /verify-password [get]
func VerifyPassword(c *gin.Context) {
	password := c.Query("password")
	if password == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request payload",
			Err: fmt.Errorf("password query parameter is required"),
		})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "User not authenticated",
			Err: fmt.Errorf("user id not found in context"),
		})
		return
	}

	var user model.User
	switch err := db.First(&user, userID).Error; {
	case err == gorm.ErrRecordNotFound:
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return
	}

	match, err := util.VerifyPassword(password, user.Password, user.PasswordSalt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return
	}
	if !match {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Invalid password",
			Err: fmt.Errorf("provided password does not match"),
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Password verified",
		Data: map[string]bool{"verified": true},
	})
}
