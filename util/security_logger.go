package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/model"
)

// SecurityEventType names a class of audit-worthy event.
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventSignupSuccess      SecurityEventType = "SIGNUP_SUCCESS"
	EventLogout             SecurityEventType = "LOGOUT"
	EventAccountLocked      SecurityEventType = "ACCOUNT_LOCKED"
	EventPasswordChanged    SecurityEventType = "PASSWORD_CHANGED"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"
)

// SecurityEvent carries one audit event through the logger. All string
// fields are treated as untrusted and sanitized before they reach a log
// line or the database.
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

// LoginParams groups the fields shared by login lifecycle events.
// Reason is only consulted by LogLoginFailure.
type LoginParams struct {
	UserID    uint
	Email     string
	IP        string
	UserAgent string
	Reason    string
}

// AccountLockParams groups the fields for account lockout events.
type AccountLockParams struct {
	UserID uint
	Email  string
	IP     string
	Reason string
}

// UnauthorizedAccessParams groups the fields for unauthorized access events.
// UserID is a string because the caller may only know an opaque identifier.
type UnauthorizedAccessParams struct {
	UserID   string
	Email    string
	IP       string
	Resource string
	Reason   string
}

// RateLimitParams groups the fields for rate limit events.
type RateLimitParams struct {
	Email    string
	IP       string
	Endpoint string
}

var (
	securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
	securityDB     *gorm.DB
)

// SetSecurityLoggerDB wires the database the audit trail persists to. Call
// during startup after the connection is established; without it events only
// reach the process log.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityDB = db
}

var logFieldReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

const maxLogFieldLen = 200

// sanitizeField flattens control characters that would let callers forge
// extra log lines and truncates oversized values.
func sanitizeField(value string) string {
	value = logFieldReplacer.Replace(value)
	if len(value) > maxLogFieldLen {
		value = value[:maxLogFieldLen] + "..."
	}
	return value
}

// LogSecurityEvent writes the event to the process log and, when a database
// is wired, to the security_logs audit trail.
func LogSecurityEvent(event SecurityEvent) {
	line := fmt.Sprintf("Event=%s UserID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeField(string(event.EventType)),
		sanitizeField(event.UserID),
		sanitizeField(event.Email),
		sanitizeField(event.IP),
		sanitizeField(event.UserAgent),
		sanitizeField(event.Message),
	)
	if len(event.Details) > 0 {
		// The details map is caller-supplied, so only its size is printed.
		line = fmt.Sprintf("%s DetailsCount=%d", line, len(event.Details))
	}
	securityLogger.Println(line)

	if securityDB != nil {
		persistEvent(securityDB, event)
	}
}

// persistEvent is best-effort: a failed write must never fail the request
// that produced the event.
func persistEvent(db *gorm.DB, event SecurityEvent) {
	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	entry := model.SecurityLog{
		EventType: string(event.EventType),
		UserID:    event.UserID,
		Email:     sanitizeField(event.Email),
		IP:        sanitizeField(event.IP),
		Location:  sanitizeField(formatLocation(GetIPLocation(event.IP))),
		UserAgent: sanitizeField(event.UserAgent),
		Message:   sanitizeField(event.Message),
		Details:   details,
	}
	if err := db.Create(&entry).Error; err != nil {
		securityLogger.Printf("Failed to persist security event: %v", err)
	}
}

// formatLocation renders a resolved location as City/Country, dropping
// whichever side is unknown.
func formatLocation(loc IPLocation) string {
	switch {
	case loc.City != "" && loc.Country != "":
		return loc.City + "/" + loc.Country
	case loc.Country != "":
		return loc.Country
	default:
		return loc.City
	}
}

func formatUserID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// LogLoginSuccess records a successful login.
func LogLoginSuccess(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    formatUserID(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure records a rejected login attempt with its reason.
func LogLoginFailure(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   fmt.Sprintf("Login failed: %s", p.Reason),
	})
}

// LogLogout records a session ending at the user's request.
func LogLogout(p LoginParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		UserID:    formatUserID(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		Message:   "User logged out",
	})
}

// LogAccountLocked records an account passing the failed-attempt threshold.
func LogAccountLocked(p AccountLockParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAccountLocked,
		UserID:    formatUserID(p.UserID),
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Account locked: %s", p.Reason),
	})
}

// LogUnauthorizedAccess records a request turned away from a resource.
func LogUnauthorizedAccess(p UnauthorizedAccessParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		UserID:    p.UserID,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", p.Resource, p.Reason),
	})
}

// LogRateLimitExceeded records a client hitting a rate limit.
func LogRateLimitExceeded(p RateLimitParams) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		Email:     p.Email,
		IP:        p.IP,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", p.Endpoint),
	})
}

// GetSecurityLoggerForTest returns the active security logger so tests can
// restore it.
func GetSecurityLoggerForTest() *log.Logger {
	return securityLogger
}

// SetSecurityLoggerForTest swaps the security logger, usually for a buffer
// capturing output under test.
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityLogger = logger
}
