package endpoint

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

type dashboardScanRow struct {
	AppointmentTime   string `gorm:"column:appointment_time"`
	FirstName         string `gorm:"column:first_name"`
	LastName          string `gorm:"column:last_name"`
	Phone             string `gorm:"column:phone"`
	AppointmentReason string `gorm:"column:appointment_reason"`
}

type dashboardRow struct {
	Time        string `json:"time"`
	PatientName string `json:"patient_name"`
	Phone       string `json:"phone"`
	Reason      string `json:"reason"`
}

type statRow struct {
	Key   string `gorm:"column:stat_key"`
	Count int64  `gorm:"column:stat_count"`
}

// DoctorDashboard godoc
// @Summary      Doctor's appointments for a day
// @Description  Get a doctor's booked appointments for a date, ordered by time
// @Tags         Dashboard
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        doctor_id query int true "Doctor ID"
// @Param        date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} util.APIResponse{data=object} "Dashboard appointments retrieved"
// @Failure      400 {object} util.APIResponse "Missing doctor_id"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /dashboard/appointments [get]
func DoctorDashboard(c *gin.Context) {
	doctorIDStr := c.Query("doctor_id")
	if doctorIDStr == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "doctor_id is required",
			Err: fmt.Errorf("doctor_id missing"),
		})
		return
	}
	doctorID, err := strconv.ParseUint(doctorIDStr, 10, 32)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid doctor_id",
			Err: err,
		})
		return
	}

	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	var scanned []dashboardScanRow
	err = db.Table("appointments").
		Select("appointments.appointment_time, patients.first_name, patients.last_name, patients.phone, appointments.appointment_reason").
		Joins("JOIN patients ON patients.patient_id = appointments.patient_id").
		Where("appointments.doctor_id = ? AND appointments.appointment_date = ? AND appointments.deleted_at IS NULL", uint(doctorID), date).
		Order("appointments.appointment_time ASC").
		Find(&scanned).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve dashboard appointments",
			Err: err,
		})
		return
	}

	rows := make([]dashboardRow, 0, len(scanned))
	for _, s := range scanned {
		rows = append(rows, dashboardRow{
			Time:        s.AppointmentTime,
			PatientName: s.FirstName + " " + s.LastName,
			Phone:       s.Phone,
			Reason:      s.AppointmentReason,
		})
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Dashboard appointments retrieved",
		Data: map[string]interface{}{
			"doctor_id":    uint(doctorID),
			"date":         date,
			"appointments": rows,
			"total_count":  len(rows),
		},
	})
}

func countEmergencyByStatus(db *gorm.DB) (map[string]int64, error) {
	var rows []statRow
	err := db.Table("emergency_appointments").
		Select("status as stat_key, COUNT(*) as stat_count").
		Where("deleted_at IS NULL").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int64, len(rows))
	for _, r := range rows {
		byStatus[r.Key] = r.Count
	}
	return byStatus, nil
}

func countAppointmentsBySpecialization(db *gorm.DB) (map[string]int64, error) {
	var rows []statRow
	err := db.Table("appointments").
		Select("doctors.specialization as stat_key, COUNT(*) as stat_count").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("appointments.deleted_at IS NULL").
		Group("doctors.specialization").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	bySpecialization := make(map[string]int64, len(rows))
	for _, r := range rows {
		bySpecialization[r.Key] = r.Count
	}
	return bySpecialization, nil
}

// AppointmentStats godoc
// @Summary      Appointment statistics
// @Description  Totals for regular and emergency appointments, emergency counts per status, and bookings per specialization
// @Tags         Dashboard
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=object} "Statistics retrieved"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /stats/appointments [get]
func AppointmentStats(c *gin.Context) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	var totalAppointments int64
	if err := db.Model(&model.Appointment{}).Count(&totalAppointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to count appointments",
			Err: err,
		})
		return
	}

	var totalEmergency int64
	if err := db.Model(&model.EmergencyAppointment{}).Count(&totalEmergency).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to count emergency appointments",
			Err: err,
		})
		return
	}

	byStatus, err := countEmergencyByStatus(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to aggregate emergency statuses",
			Err: err,
		})
		return
	}

	bySpecialization, err := countAppointmentsBySpecialization(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to aggregate specializations",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Statistics retrieved",
		Data: map[string]interface{}{
			"total_appointments":             totalAppointments,
			"total_emergency":                totalEmergency,
			"emergency_by_status":            byStatus,
			"appointments_by_specialization": bySpecialization,
		},
	})
}
