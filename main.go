// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/medicloudhq/portal/config"
	_ "github.com/medicloudhq/portal/docs"
	"github.com/medicloudhq/portal/endpoint"
	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/notify"
	"github.com/medicloudhq/portal/util"
	"github.com/medicloudhq/portal/worker"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Patient{}, &model.Appointment{},
		&model.Doctor{}, &model.DoctorSchedule{},
		&model.EmergencyAppointment{}, &model.AssistantLog{},
		&model.User{}, &model.Session{}, &model.Role{}, &model.SecurityLog{},
	); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		log.Fatalf("Error seeding roles: %v", err)
	}

	util.SetSecurityLoggerDB(db)
	util.InitUserEmailCacheFromEnv()
	if err := util.InitGeoIP(os.Getenv("GEOIP_DB_PATH")); err != nil {
		log.Printf("GeoIP lookups disabled: %v", err)
	}
	defer util.CloseGeoIP()

	// Redis and AWS are best-effort at startup: sessions fall back to MySQL
	// and notifications are skipped when the clients are unavailable.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable: %v", err)
	}
	if _, err := config.ConnectAWS(); err != nil {
		log.Printf("AWS session unavailable: %v", err)
	}

	worker.NewReminderScheduler(db).StartReminderCron()
	reminderWorker := notify.NewReminderWorker(config.GetSQSClient(), os.Getenv("REMINDER_QUEUE_URL"))
	reminderWorker.Start()
	defer reminderWorker.Stop()

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.EndpointCallLogger())
	router.Use(middleware.DatabaseMiddleware(db))

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public portal routes
	public := router.Group("/")
	public.Use(middleware.RateLimiter(middleware.RateLimitConfig{}))
	{
		public.POST("/signup", middleware.ValidateAPIToken(), endpoint.Signup)
		public.POST("/login", middleware.ValidateAPIToken(), endpoint.Login)
		public.GET("/token/validate", endpoint.ValidateToken)
		public.GET("/doctors", endpoint.ListDoctors)
		public.GET("/doctors/emergency", endpoint.EmergencyDoctors)
		public.POST("/patients", endpoint.CreatePatient)
		public.GET("/patients/:patient_id/appointments", endpoint.GetPatientAppointments)
		public.POST("/emergency", endpoint.BookEmergency)
		public.GET("/emergency/:id/slip", endpoint.EmergencySlip)
		public.POST("/assistant", endpoint.AskAssistant)
	}

	// Staff routes behind session auth
	auth := router.Group("/")
	auth.Use(middleware.ValidateLoginToken())
	{
		auth.DELETE("/logout", endpoint.Logout)
		auth.GET("/verify-password", endpoint.VerifyPassword)
		auth.PATCH("/user", endpoint.UpdateUser)

		auth.GET("/patients", endpoint.ListPatients)
		auth.GET("/emergency", endpoint.ListEmergencyAppointments)
		auth.PATCH("/emergency/:id/status", endpoint.UpdateEmergencyStatus)
		auth.GET("/dashboard/appointments", endpoint.DoctorDashboard)
		auth.GET("/dashboard/stream", endpoint.StreamDashboard)
		auth.GET("/stats/appointments", endpoint.AppointmentStats)

		admin := auth.Group("/")
		admin.Use(middleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/user", endpoint.ListUsers)
			admin.GET("/user/:id", endpoint.GetUserInfo)
			admin.PATCH("/user/:id", endpoint.UpdateUserByID)
			admin.DELETE("/user/:id", endpoint.DeleteUser)

			admin.POST("/doctors", endpoint.CreateDoctor)
			admin.PATCH("/doctors/:id", endpoint.UpdateDoctor)

			admin.GET("/export/appointments", endpoint.ExportAppointments)
		}
	}

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
