package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

type doctorSummary struct {
	DoctorID       uint   `gorm:"column:id" json:"doctor_id"`
	Name           string `gorm:"column:name" json:"name"`
	Specialization string `gorm:"column:specialization" json:"specialization"`
}

type emergencyDoctorRow struct {
	DoctorID       uint   `gorm:"column:id" json:"doctor_id"`
	Name           string `gorm:"column:name" json:"name"`
	Specialization string `gorm:"column:specialization" json:"specialization"`
	StartTime      string `gorm:"column:start_time" json:"start_time"`
	EndTime        string `gorm:"column:end_time" json:"end_time"`
}

type DoctorScheduleInput struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CreateDoctorRequest struct {
	Name               string                `json:"name"`
	Specialization     string                `json:"specialization"`
	PhoneNumber        string                `json:"phone_number"`
	Email              string                `json:"email"`
	AvailabilityStatus string                `json:"availability_status"`
	Schedules          []DoctorScheduleInput `json:"schedules"`
}

type UpdateDoctorRequest struct {
	Name               string                `json:"name"`
	Specialization     string                `json:"specialization"`
	PhoneNumber        string                `json:"phone_number"`
	Email              string                `json:"email"`
	AvailabilityStatus string                `json:"availability_status"`
	Schedules          []DoctorScheduleInput `json:"schedules"`
}

var validDaysOfWeek = map[string]bool{
	"Monday":    true,
	"Tuesday":   true,
	"Wednesday": true,
	"Thursday":  true,
	"Friday":    true,
	"Saturday":  true,
	"Sunday":    true,
}

func validateScheduleInputs(schedules []DoctorScheduleInput) error {
	for _, s := range schedules {
		day := util.NormalizeName(s.DayOfWeek)
		if !validDaysOfWeek[day] {
			return fmt.Errorf("invalid day_of_week: %s", s.DayOfWeek)
		}
		if _, err := time.Parse("15:04", s.StartTime); err != nil {
			return fmt.Errorf("start_time must use the 15:04 format")
		}
		if _, err := time.Parse("15:04", s.EndTime); err != nil {
			return fmt.Errorf("end_time must use the 15:04 format")
		}
	}
	return nil
}

// ListDoctors godoc
// @Summary      List available doctors
// @Description  Get all doctors currently accepting appointments (public endpoint)
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Success      200 {object} util.APIResponse{data=object} "Doctors retrieved"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /doctors [get]
func ListDoctors(c *gin.Context) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	var doctors []doctorSummary
	err := db.Table("doctors").
		Select("id, name, specialization").
		Where("availability_status = ? AND deleted_at IS NULL", model.DoctorAvailable).
		Order("name ASC").
		Find(&doctors).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve doctors",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Doctors retrieved",
		Data: map[string]interface{}{
			"doctors":     doctors,
			"total_count": len(doctors),
		},
	})
}

// EmergencyDoctors godoc
// @Summary      List doctors available for emergencies
// @Description  Get doctors whose schedule covers the given day, optionally filtered by specialization
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Param        day query string false "Day of week, defaults to today"
// @Param        specialization query string false "Filter by specialization"
// @Success      200 {object} util.APIResponse{data=object} "Available doctors"
// @Failure      400 {object} util.APIResponse "Invalid day"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /doctors/emergency [get]
func EmergencyDoctors(c *gin.Context) {
	day := c.Query("day")
	if day == "" {
		day = time.Now().Weekday().String()
	} else {
		day = util.NormalizeName(day)
	}
	if !validDaysOfWeek[day] {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid day of week: %s", c.Query("day")),
			Err: fmt.Errorf("unknown day"),
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

	query := db.Table("doctors").
		Select("DISTINCT doctors.id, doctors.name, doctors.specialization, doctor_schedules.start_time, doctor_schedules.end_time").
		Joins("JOIN doctor_schedules ON doctor_schedules.doctor_id = doctors.id").
		Where("doctor_schedules.day_of_week = ? AND doctors.availability_status = ? AND doctors.deleted_at IS NULL", day, model.DoctorAvailable)

	if specialization := c.Query("specialization"); specialization != "" {
		query = query.Where("doctors.specialization = ?", specialization)
	}

	var rows []emergencyDoctorRow
	if err := query.Order("doctors.specialization ASC, doctors.name ASC").Find(&rows).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve emergency doctors",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: fmt.Sprintf("Available doctors for %s", day),
		Data: map[string]interface{}{
			"day":               day,
			"available_doctors": rows,
			"total_count":       len(rows),
		},
	})
}

func validateCreateDoctorRequest(req CreateDoctorRequest) error {
	requiredFields := map[string]string{
		"name":           req.Name,
		"specialization": req.Specialization,
	}

	for fieldName, fieldValue := range requiredFields {
		if strings.TrimSpace(fieldValue) == "" {
			return fmt.Errorf("%s is empty or missing required fields", fieldName)
		}
	}
	if req.AvailabilityStatus != "" && !model.ValidAvailabilityStatus(req.AvailabilityStatus) {
		return fmt.Errorf("invalid availability_status: %s", req.AvailabilityStatus)
	}
	return validateScheduleInputs(req.Schedules)
}

func createDoctorInDB(db *gorm.DB, req CreateDoctorRequest) (model.Doctor, error) {
	status := req.AvailabilityStatus
	if status == "" {
		status = model.DoctorAvailable
	}

	doctor := model.Doctor{
		Name:               strings.TrimSpace(req.Name),
		Specialization:     strings.TrimSpace(req.Specialization),
		PhoneNumber:        strings.TrimSpace(req.PhoneNumber),
		Email:              strings.TrimSpace(req.Email),
		AvailabilityStatus: status,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doctor).Error; err != nil {
			return err
		}
		for _, s := range req.Schedules {
			schedule := model.DoctorSchedule{
				DoctorID:  doctor.ID,
				DayOfWeek: util.NormalizeName(s.DayOfWeek),
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
			}
			if err := tx.Create(&schedule).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return doctor, err
}

// CreateDoctor godoc
// @Summary      Create a doctor
// @Description  Register a new doctor along with their weekly schedule (admin only)
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body CreateDoctorRequest true "Doctor information"
// @Success      200 {object} util.APIResponse "Doctor created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /doctors [post]
func CreateDoctor(c *gin.Context) {
	req := CreateDoctorRequest{}

	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if err := validateCreateDoctorRequest(req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: err.Error(),
			Err: fmt.Errorf("invalid payload"),
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

	doctor, err := createDoctorInDB(db, req)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create doctor",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctor created",
		Data: map[string]interface{}{"doctor_id": doctor.ID},
	})
}

func applyDoctorUpdates(doctor *model.Doctor, req UpdateDoctorRequest) {
	if req.Name != "" {
		doctor.Name = strings.TrimSpace(req.Name)
	}
	if req.Specialization != "" {
		doctor.Specialization = strings.TrimSpace(req.Specialization)
	}
	if req.PhoneNumber != "" {
		doctor.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	}
	if req.Email != "" {
		doctor.Email = strings.TrimSpace(req.Email)
	}
	if req.AvailabilityStatus != "" {
		doctor.AvailabilityStatus = req.AvailabilityStatus
	}
}

func replaceDoctorSchedules(tx *gorm.DB, doctorID uint, schedules []DoctorScheduleInput) error {
	if err := tx.Where("doctor_id = ?", doctorID).Delete(&model.DoctorSchedule{}).Error; err != nil {
		return err
	}
	for _, s := range schedules {
		schedule := model.DoctorSchedule{
			DoctorID:  doctorID,
			DayOfWeek: util.NormalizeName(s.DayOfWeek),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		}
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpdateDoctor godoc
// @Summary      Update a doctor
// @Description  Update doctor details and optionally replace their schedule (admin only)
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Doctor ID"
// @Param        request body UpdateDoctorRequest true "Fields to update"
// @Success      200 {object} util.APIResponse "Doctor updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /doctors/{id} [patch]
func UpdateDoctor(c *gin.Context) {
	doctorID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid doctor ID",
			Err: err,
		})
		return
	}

	req := UpdateDoctorRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if req.AvailabilityStatus != "" && !model.ValidAvailabilityStatus(req.AvailabilityStatus) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("invalid availability_status: %s", req.AvailabilityStatus),
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}
	if err := validateScheduleInputs(req.Schedules); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: err.Error(),
			Err: fmt.Errorf("invalid payload"),
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
	if err := db.First(&doctor, doctorID).Error; err != nil {
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

	applyDoctorUpdates(&doctor, req)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&doctor).Error; err != nil {
			return err
		}
		if req.Schedules != nil {
			return replaceDoctorSchedules(tx, doctor.ID, req.Schedules)
		}
		return nil
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to update doctor",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Doctor updated",
		Data: doctor,
	})
}
