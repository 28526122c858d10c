package endpoint_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/endpoint"
	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
)

// apiResp is the response envelope every handler writes.
type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// doRequest serves one JSON request against the routed test server.
func doRequest(r http.Handler, method, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, error) {
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr, nil
}

// portalTestModels mirrors the production schema for the routed test server.
var portalTestModels = []interface{}{
	&model.Patient{}, &model.Appointment{}, &model.User{}, &model.Session{},
	&model.Doctor{}, &model.DoctorSchedule{}, &model.Role{},
	&model.EmergencyAppointment{}, &model.AssistantLog{},
}

// setupTestServer builds a router with the production route layout against a
// migrated test database. The returned cleanup drops every table.
func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	if err := db.AutoMigrate(portalTestModels...); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	r := gin.New()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))

	r.POST("/signup", endpoint.Signup)
	r.POST("/login", endpoint.Login)
	r.GET("/token/validate", endpoint.ValidateToken)
	r.GET("/doctors", endpoint.ListDoctors)
	r.GET("/doctors/emergency", endpoint.EmergencyDoctors)
	r.POST("/patients", endpoint.CreatePatient)
	r.GET("/patients/:patient_id/appointments", endpoint.GetPatientAppointments)
	r.POST("/emergency", endpoint.BookEmergency)
	r.GET("/emergency/:id/slip", endpoint.EmergencySlip)

	auth := r.Group("/")
	auth.Use(middleware.ValidateLoginToken())
	{
		auth.DELETE("/logout", endpoint.Logout)
		auth.PATCH("/user", endpoint.UpdateUser)
		auth.GET("/verify-password", endpoint.VerifyPassword)
		auth.GET("/emergency", endpoint.ListEmergencyAppointments)
		auth.PATCH("/emergency/:id/status", endpoint.UpdateEmergencyStatus)
		auth.GET("/dashboard/appointments", endpoint.DoctorDashboard)
		auth.GET("/stats/appointments", endpoint.AppointmentStats)

		userAdmin := auth.Group("/user")
		userAdmin.Use(middleware.RequireRole(model.RoleAdmin))
		{
			userAdmin.GET("", endpoint.ListUsers)
			userAdmin.GET(":id", endpoint.GetUserInfo)
			userAdmin.PATCH(":id", endpoint.UpdateUserByID)
			userAdmin.DELETE(":id", endpoint.DeleteUser)
		}

		doctorAdmin := auth.Group("/doctors")
		doctorAdmin.Use(middleware.RequireRole(model.RoleAdmin))
		{
			doctorAdmin.POST("", endpoint.CreateDoctor)
			doctorAdmin.PATCH(":id", endpoint.UpdateDoctor)
		}
	}

	cleanup := func() {
		if err := db.Migrator().DropTable(portalTestModels...); err != nil {
			t.Errorf("drop test tables: %v", err)
		}
	}
	return r, db, cleanup
}

type signupCreds struct {
	Name     string
	Email    string
	Password string
}

var apiAuthHeader = map[string]string{"Authorization": "Bearer test-api-token"}

func sessionHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer test-api-token", "session-token": token}
}

// postJSONOK marshals the payload, posts it and fails the test unless the
// server answers 200.
func postJSONOK(t *testing.T, r http.Handler, path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", path, err)
	}
	rr, err := doRequest(r, "POST", path, body, headers)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("POST %s returned %d: %s", path, rr.Code, rr.Body.String())
	}
	return rr
}

// createAndLoginUser registers the account and opens a session, returning
// the session token and user ID.
func createAndLoginUser(t *testing.T, r http.Handler, creds signupCreds) (string, uint) {
	t.Helper()

	postJSONOK(t, r, "/signup", map[string]string{"name": creds.Name, "email": creds.Email, "password": creds.Password}, apiAuthHeader)
	rr := postJSONOK(t, r, "/login", map[string]string{"email": creds.Email, "password": creds.Password}, apiAuthHeader)

	resp := parseAPIResp(t, rr)
	var data struct {
		Token  string `json:"token"`
		Role   string `json:"role"`
		UserID uint   `json:"user_id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode login payload: %v", err)
	}
	return data.Token, data.UserID
}

// serverWithUser boots the server and opens a session for one account.
func serverWithUser(t *testing.T, creds signupCreds) (*gin.Engine, *gorm.DB, string, uint) {
	r, db, cleanup := setupTestServer(t)
	t.Cleanup(cleanup)

	token, id := createAndLoginUser(t, r, creds)
	return r, db, token, id
}

// serverWithAdmin boots the server and opens an admin session.
func serverWithAdmin(t *testing.T) (*gin.Engine, *gorm.DB, string) {
	r, db, cleanup := setupTestServer(t)
	t.Cleanup(cleanup)

	token, _ := createAndLoginUser(t, r, signupCreds{Name: "Portal Admin", Email: "admin@example.com", Password: "adminsecret1"})
	return r, db, token
}

// serverWithAdminAndUser boots the server with an admin session plus one
// further account.
func serverWithAdminAndUser(t *testing.T, creds signupCreds) (*gin.Engine, *gorm.DB, string, string, uint) {
	r, db, adminToken := serverWithAdmin(t)

	userToken, userID := createAndLoginUser(t, r, creds)
	return r, db, adminToken, userToken, userID
}

func parseAPIResp(t *testing.T, rr *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rr.Body.String())
	}
	return resp
}

func parseDataToMap(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode data payload: %v", err)
	}
	return data
}

// seedStaffDirectory registers an admin plus five staff accounts and returns
// the admin session token.
func seedStaffDirectory(t *testing.T, r http.Handler) string {
	t.Helper()

	adminToken, _ := createAndLoginUser(t, r, signupCreds{Name: "Portal Admin", Email: "admin@example.com", Password: "adminsecret1"})

	staff := []signupCreds{
		{Name: "Amelia Hart", Email: "amelia@example.com", Password: "staffpass1"},
		{Name: "Ben Osei", Email: "ben@example.com", Password: "staffpass1"},
		{Name: "Carla Mendez", Email: "carla@example.com", Password: "staffpass1"},
		{Name: "Dev Patel", Email: "dev@example.com", Password: "staffpass1"},
		{Name: "Erin Walsh", Email: "erin@example.com", Password: "staffpass1"},
	}
	for _, s := range staff {
		postJSONOK(t, r, "/signup", map[string]string{"name": s.Name, "email": s.Email, "password": s.Password}, apiAuthHeader)
	}
	return adminToken
}

// listUsersData fetches GET /user with the query string and returns the
// decoded data payload.
func listUsersData(t *testing.T, r http.Handler, adminToken, query string) map[string]interface{} {
	t.Helper()

	path := "/user"
	if query != "" {
		path += "?" + query
	}
	rr, err := doRequest(r, "GET", path, nil, sessionHeaders(adminToken))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s returned %d: %s", path, rr.Code, rr.Body.String())
	}
	return parseDataToMap(t, parseAPIResp(t, rr).Data)
}

func assertListCounts(t *testing.T, data map[string]interface{}, total, fetched int) {
	t.Helper()
	if got := int(data["total"].(float64)); got != total {
		t.Errorf("expected total %d, got %d", total, got)
	}
	if got := int(data["total_fetched"].(float64)); got != fetched {
		t.Errorf("expected total_fetched %d, got %d", fetched, got)
	}
}

// emailUpdate describes a PATCH that changes an account's email. An empty
// path targets the caller's own profile.
type emailUpdate struct {
	token string
	path  string
	email string
}

func patchUserEmail(t *testing.T, r http.Handler, req emailUpdate) *httptest.ResponseRecorder {
	t.Helper()

	if req.path == "" {
		req.path = "/user"
	}
	body, _ := json.Marshal(map[string]string{"email": req.email})
	rr, err := doRequest(r, "PATCH", req.path, body, sessionHeaders(req.token))
	if err != nil {
		t.Fatalf("email update failed: %v", err)
	}
	return rr
}

func assertUserEmail(t *testing.T, db *gorm.DB, userID uint, want string) {
	t.Helper()

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", userID, err)
	}
	if user.Email != want {
		t.Fatalf("expected email %s, got %s", want, user.Email)
	}
}
