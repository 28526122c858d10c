package model

import "gorm.io/gorm"

// Appointment represents a registered (non-emergency) appointment
// @Description Appointment information
type Appointment struct {
	gorm.Model
	PatientID         string `json:"patient_id" gorm:"not null;index;size:191" example:"P20250315143000"`
	DoctorID          uint   `json:"doctor_id" gorm:"not null;index" example:"1"`
	AppointmentDate   string `json:"appointment_date" gorm:"not null" example:"2025-03-15"`
	AppointmentTime   string `json:"appointment_time" gorm:"not null" example:"14:30"`
	AppointmentReason string `json:"appointment_reason" example:"General checkup"`
	ReminderSent      bool   `json:"reminder_sent" gorm:"default:false" example:"false"`
}

// AppointmentRequest represents a combined registration + booking request
// @Description Appointment booking request information
type AppointmentRequest struct {
	FirstName         string `json:"first_name" example:"John"`
	LastName          string `json:"last_name" example:"Doe"`
	Phone             string `json:"phone" example:"081234567890"`
	Age               int    `json:"age,omitempty" example:"30"`
	Gender            string `json:"gender,omitempty" example:"male"`
	Email             string `json:"email,omitempty" example:"john@example.com"`
	DoctorID          uint   `json:"doctor_id" example:"1"`
	AppointmentDate   string `json:"appointment_date" example:"2025-03-15"`
	AppointmentTime   string `json:"appointment_time" example:"14:30"`
	AppointmentReason string `json:"appointment_reason,omitempty" example:"General checkup"`
}

// PatientAppointmentRow represents one row of a patient's booking history
// @Description Patient appointment history row
type PatientAppointmentRow struct {
	Appointment
	DoctorName     string `json:"doctor_name" gorm:"column:doctor_name" example:"Dr. Sarah Johnson"`
	Specialization string `json:"specialization" gorm:"column:specialization" example:"Cardiology"`
}
