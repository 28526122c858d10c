package endpoint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

// endpointTestModels is the full schema migrated for handler tests.
var endpointTestModels = []interface{}{
	&model.Patient{},
	&model.Appointment{},
	&model.User{},
	&model.Session{},
	&model.Doctor{},
	&model.DoctorSchedule{},
	&model.Role{},
	&model.EmergencyAppointment{},
	&model.AssistantLog{},
}

// setupEndpointTestDB connects the test database, migrates the schema and
// registers cleanup. JWT signing is pinned to a test secret.
func setupEndpointTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret-123")
	util.SetJWTSecret("test-secret-123")

	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}
	if err := db.AutoMigrate(endpointTestModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	// Start from empty tables; earlier tests may share the database file.
	for _, m := range endpointTestModels {
		db.Where("1 = 1").Delete(m)
	}
	t.Cleanup(func() {
		for _, m := range endpointTestModels {
			_ = db.Migrator().DropTable(m)
		}
	})

	return db
}

// setupEndpointTest returns a Gin engine with the test database injected.
func setupEndpointTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupEndpointTestDB(t)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	return r, db
}

// newTestRouter returns a bare engine for handler tests that inject their
// own context values.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, w.Code)
}

func assertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, response map[string]interface{}) {
	t.Helper()
	assert.Equal(t, http.StatusOK, w.Code)
	if response == nil {
		return
	}
	if success, ok := response["success"].(bool); ok {
		assert.True(t, success)
	}
}
