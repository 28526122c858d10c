package endpoint

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/notify"
	"github.com/medicloudhq/portal/sse"
	"github.com/medicloudhq/portal/util"
)

type EmergencyBookingRequest struct {
	PatientName     string `json:"patient_name"`
	PatientPhone    string `json:"patient_phone"`
	DoctorID        uint   `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	EmergencyReason string `json:"emergency_reason"`
	Status          string `json:"status"`
}

type UpdateEmergencyStatusRequest struct {
	Status string `json:"status"`
}

var emergencyRequiredFields = []string{
	"patient_name",
	"patient_phone",
	"doctor_id",
	"appointment_date",
	"appointment_time",
	"emergency_reason",
}

func missingEmergencyFields(req EmergencyBookingRequest) bool {
	if strings.TrimSpace(req.PatientName) == "" ||
		strings.TrimSpace(req.PatientPhone) == "" ||
		strings.TrimSpace(req.AppointmentDate) == "" ||
		strings.TrimSpace(req.AppointmentTime) == "" ||
		strings.TrimSpace(req.EmergencyReason) == "" {
		return true
	}
	return req.DoctorID == 0
}

// BookEmergency godoc
// @Summary      Book an emergency appointment
// @Description  Book an emergency slot with a doctor, alert the on-call topic, and refresh dashboards
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Param        request body EmergencyBookingRequest true "Emergency booking information"
// @Success      200 {object} util.APIResponse "Emergency appointment booked successfully"
// @Failure      400 {object} util.APIResponse "Missing required fields"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /emergency [post]
func BookEmergency(c *gin.Context) {
	req := EmergencyBookingRequest{}

	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if missingEmergencyFields(req) {
		// The Call* helpers blank out Data, and the booking form needs the
		// field list to highlight what is missing.
		c.JSON(http.StatusBadRequest, util.APIResponse{
			Success: false,
			Error:   "missing required fields",
			Msg:     "Missing required fields",
			Data:    map[string]interface{}{"required": emergencyRequiredFields},
		})
		return
	}

	status := req.Status
	if status == "" {
		status = model.StatusScheduled
	}
	if !model.ValidEmergencyStatus(status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid status: %s", req.Status),
			Err: fmt.Errorf("unknown emergency status"),
		})
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	var doctor model.Doctor
	if err := db.First(&doctor, req.DoctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{
				Msg: "Doctor not found",
				Err: err,
			})
			return
		}
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to look up doctor",
			Err: err,
		})
		return
	}

	appointment := model.EmergencyAppointment{
		DoctorID:         doctor.ID,
		DoctorName:       doctor.Name,
		Specialization:   doctor.Specialization,
		PatientName:      strings.TrimSpace(req.PatientName),
		PatientPhone:     strings.TrimSpace(req.PatientPhone),
		AppointmentDate:  req.AppointmentDate,
		AppointmentTime:  req.AppointmentTime,
		EmergencyReason:  strings.TrimSpace(req.EmergencyReason),
		Status:           status,
		BookingTimestamp: time.Now(),
	}

	if err := db.Create(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to book emergency appointment",
			Err: err,
		})
		return
	}

	notifyEmergencyBooked(appointment)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Emergency appointment booked successfully",
		Data: map[string]interface{}{
			"emergency_id":     appointment.ID,
			"patient_name":     appointment.PatientName,
			"doctor_name":      appointment.DoctorName,
			"appointment_date": appointment.AppointmentDate,
			"appointment_time": appointment.AppointmentTime,
		},
	})
}

// notifyEmergencyBooked fans the booking out to the on-call topic and the
// dashboard stream. The booking is already committed, so failures are logged
// and not surfaced to the caller.
func notifyEmergencyBooked(appointment model.EmergencyAppointment) {
	alert := notify.EmergencyAlert{
		EmergencyID:     appointment.ID,
		PatientName:     appointment.PatientName,
		DoctorName:      appointment.DoctorName,
		Specialization:  appointment.Specialization,
		AppointmentDate: appointment.AppointmentDate,
		AppointmentTime: appointment.AppointmentTime,
		Reason:          appointment.EmergencyReason,
	}
	if err := notify.PublishEmergencyAlert(config.GetSNSClient(), alert); err != nil {
		log.Printf("failed to publish emergency alert: %v", err)
	}

	sse.Dashboard.Broadcast("refresh")
}

// ListEmergencyAppointments godoc
// @Summary      List emergency appointments
// @Description  Get emergency appointments filtered by doctor, date, or status, newest first
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        doctor_id query int false "Filter by doctor ID"
// @Param        date query string false "Filter by appointment date (YYYY-MM-DD)"
// @Param        status query string false "Filter by lifecycle status"
// @Success      200 {object} util.APIResponse{data=object} "Emergency appointments retrieved"
// @Failure      400 {object} util.APIResponse "Invalid filter"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /emergency [get]
func ListEmergencyAppointments(c *gin.Context) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	query := db.Model(&model.EmergencyAppointment{})

	if doctorIDStr := c.Query("doctor_id"); doctorIDStr != "" {
		doctorID, err := strconv.ParseUint(doctorIDStr, 10, 32)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Invalid doctor_id",
				Err: err,
			})
			return
		}
		query = query.Where("doctor_id = ?", uint(doctorID))
	}
	if date := c.Query("date"); date != "" {
		query = query.Where("appointment_date = ?", date)
	}
	if status := c.Query("status"); status != "" {
		if !model.ValidEmergencyStatus(status) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Invalid status: %s", status),
				Err: fmt.Errorf("unknown emergency status"),
			})
			return
		}
		query = query.Where("status = ?", status)
	}

	var appointments []model.EmergencyAppointment
	if err := query.Order("appointment_date DESC, appointment_time DESC").Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve emergency appointments",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Emergency appointments retrieved",
		Data: map[string]interface{}{
			"appointments": appointments,
			"total_count":  len(appointments),
		},
	})
}

// UpdateEmergencyStatus godoc
// @Summary      Update emergency appointment status
// @Description  Move an emergency appointment through its lifecycle (SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED)
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Emergency appointment ID"
// @Param        request body UpdateEmergencyStatusRequest true "New status"
// @Success      200 {object} util.APIResponse "Status updated"
// @Failure      400 {object} util.APIResponse "Invalid transition"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      404 {object} util.APIResponse "Emergency appointment not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /emergency/{id}/status [patch]
func UpdateEmergencyStatus(c *gin.Context) {
	emergencyID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid emergency appointment ID",
			Err: err,
		})
		return
	}

	req := UpdateEmergencyStatusRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if req.Status == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "status is empty or missing required fields",
			Err: fmt.Errorf("status missing"),
		})
		return
	}
	if !model.ValidEmergencyStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid status: %s", req.Status),
			Err: fmt.Errorf("unknown emergency status"),
		})
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	var appointment model.EmergencyAppointment
	if err := db.First(&appointment, emergencyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{
				Msg: "Emergency appointment not found",
				Err: err,
			})
			return
		}
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to look up emergency appointment",
			Err: err,
		})
		return
	}

	if !model.CanTransitionStatus(appointment.Status, req.Status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Cannot change status from %s to %s", appointment.Status, req.Status),
			Err: fmt.Errorf("invalid status transition"),
		})
		return
	}

	appointment.Status = req.Status
	if err := db.Save(&appointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update emergency appointment",
			Err: err,
		})
		return
	}

	sse.Dashboard.Broadcast("refresh")

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Status updated",
		Data: appointment,
	})
}
