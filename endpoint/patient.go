package endpoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/sse"
	"github.com/medicloudhq/portal/util"
)

type patientListQuery struct {
	Limit   int
	Offset  int
	Keyword string
}

func parsePatientListQuery(c *gin.Context) patientListQuery {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return patientListQuery{
		Limit:   limit,
		Offset:  offset,
		Keyword: c.Query("keyword"),
	}
}

// scope returns the base patient query with the keyword filter applied. The
// keyword matches names, patient codes, and phone numbers.
func (q patientListQuery) scope(db *gorm.DB) *gorm.DB {
	scoped := db.Model(&model.Patient{})
	if q.Keyword != "" {
		kw := "%" + q.Keyword + "%"
		scoped = scoped.Where("first_name LIKE ? OR last_name LIKE ? OR patient_id LIKE ? OR phone LIKE ?", kw, kw, kw, kw)
	}
	return scoped
}

// fetchPatients returns one page of matching patients plus the number of
// matches overall.
func fetchPatients(db *gorm.DB, q patientListQuery) ([]model.Patient, int64, error) {
	var total int64
	if err := q.scope(db).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.scope(db).Order("patients.created_at DESC")
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if q.Offset > 0 {
		page = page.Offset(q.Offset)
	}

	var patients []model.Patient
	if err := page.Find(&patients).Error; err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

// ListPatients godoc
// @Summary      List all patients
// @Description  Get a paginated list of registered patients with optional keyword filtering
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        limit query int false "Limit number of results"
// @Param        offset query int false "Offset for pagination"
// @Param        keyword query string false "Search keyword for patient name, code, or phone"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /patients [get]
func ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patients, total, err := fetchPatients(db, parsePatientListQuery(c))
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: map[string]interface{}{"total": total, "total_fetched": len(patients), "patients": patients},
	})
}

func validateAppointmentRequest(req model.AppointmentRequest) error {
	checks := []struct {
		field string
		value string
	}{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"phone", req.Phone},
		{"appointment_date", req.AppointmentDate},
		{"appointment_time", req.AppointmentTime},
	}
	for _, ck := range checks {
		if strings.TrimSpace(ck.value) == "" {
			return fmt.Errorf("%s is empty or missing required fields", ck.field)
		}
	}
	if req.DoctorID == 0 {
		return fmt.Errorf("doctor_id is empty or missing required fields")
	}
	if _, err := time.Parse("2006-01-02", req.AppointmentDate); err != nil {
		return fmt.Errorf("appointment_date must use the 2006-01-02 format")
	}
	if _, err := time.Parse("15:04", req.AppointmentTime); err != nil {
		return fmt.Errorf("appointment_time must use the 15:04 format")
	}
	return nil
}

// generatePatientID builds a "P" + timestamp patient code, retrying with a
// numeric suffix when a booking lands on the same second.
func generatePatientID(tx *gorm.DB, now time.Time) (string, error) {
	base := "P" + now.Format("20060102150405")
	candidate := base
	for i := 1; i <= 100; i++ {
		var count int64
		if err := tx.Model(&model.Patient{}).Where("patient_id = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", fmt.Errorf("could not allocate a unique patient id")
}

func buildPatient(req model.AppointmentRequest, patientID string) model.Patient {
	return model.Patient{
		PatientID: patientID,
		FirstName: util.NormalizeName(req.FirstName),
		LastName:  util.NormalizeName(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Age:       req.Age,
		Gender:    req.Gender,
		Email:     strings.TrimSpace(req.Email),
	}
}

// findDoctorOrRespond loads the doctor a booking targets, answering 404 or
// 500 on failure.
func findDoctorOrRespond(c *gin.Context, db *gorm.DB, doctorID uint) (model.Doctor, bool) {
	var doctor model.Doctor
	switch err := db.First(&doctor, doctorID).Error; {
	case err == gorm.ErrRecordNotFound:
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor not found", Err: err})
		return model.Doctor{}, false
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up doctor", Err: err})
		return model.Doctor{}, false
	}
	return doctor, true
}

// CreatePatient godoc
// @Summary      Register a patient and book an appointment
// @Description  Register a new patient and book their appointment in one transaction (public endpoint)
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Param        request body model.AppointmentRequest true "Patient and appointment information"
// @Success      200 {object} util.APIResponse "Appointment booked successfully"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /patients [post]
func CreatePatient(c *gin.Context) {
	var req model.AppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if err := validateAppointmentRequest(req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: fmt.Errorf("invalid payload")})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, ok := findDoctorOrRespond(c, db, req.DoctorID)
	if !ok {
		return
	}

	// The patient row and the appointment commit together or not at all.
	var patientID string
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		patientID, txErr = generatePatientID(tx, time.Now())
		if txErr != nil {
			return txErr
		}

		patient := buildPatient(req, patientID)
		if err := tx.Create(&patient).Error; err != nil {
			return err
		}

		appointment := model.Appointment{
			PatientID:         patientID,
			DoctorID:          doctor.ID,
			AppointmentDate:   req.AppointmentDate,
			AppointmentTime:   req.AppointmentTime,
			AppointmentReason: req.AppointmentReason,
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to book appointment", Err: err})
		return
	}

	sse.Dashboard.Broadcast("refresh")

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment booked successfully",
		Data: map[string]interface{}{"patient_id": patientID},
	})
}

// GetPatientAppointments godoc
// @Summary      Get a patient's appointments
// @Description  Retrieve the booking history for a patient by patient code
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Param        patient_id path string true "Patient code"
// @Success      200 {object} util.APIResponse{data=object} "Appointments retrieved"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /patients/{patient_id}/appointments [get]
func GetPatientAppointments(c *gin.Context) {
	patientID := c.Param("patient_id")

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	switch err := db.Where("patient_id = ?", patientID).First(&patient).Error; {
	case err == gorm.ErrRecordNotFound:
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up patient", Err: err})
		return
	}

	rows, err := appointmentHistory(db, patientID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Appointments retrieved",
		Data: map[string]interface{}{
			"patient_id":   patientID,
			"appointments": rows,
			"total_count":  len(rows),
		},
	})
}

// appointmentHistory loads a patient's bookings newest first, joined with
// the treating doctor's name and specialization.
func appointmentHistory(db *gorm.DB, patientID string) ([]model.PatientAppointmentRow, error) {
	var rows []model.PatientAppointmentRow
	err := db.Table("appointments").
		Select("appointments.*, doctors.name as doctor_name, doctors.specialization as specialization").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("appointments.patient_id = ? AND appointments.deleted_at IS NULL", patientID).
		Order("appointments.appointment_date DESC, appointments.appointment_time DESC").
		Find(&rows).Error
	return rows, err
}
