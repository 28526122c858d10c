package model

import (
	"time"

	"gorm.io/gorm"
)

// Emergency appointment lifecycle states
const (
	StatusScheduled  = "SCHEDULED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// EmergencyAppointment represents an emergency booking. Doctor name and
// specialization are copied at booking time so the record stays readable
// even if the doctor row changes later.
// @Description Emergency appointment information
type EmergencyAppointment struct {
	gorm.Model
	ID               uint      `json:"emergency_id" example:"1"`
	DoctorID         uint      `json:"doctor_id" gorm:"not null;index" example:"1"`
	DoctorName       string    `json:"doctor_name" example:"Dr. Sarah Johnson"`
	Specialization   string    `json:"specialization" example:"Cardiology"`
	PatientName      string    `json:"patient_name" gorm:"not null" example:"John Doe"`
	PatientPhone     string    `json:"patient_phone" gorm:"not null" example:"081234567890"`
	AppointmentDate  string    `json:"appointment_date" gorm:"not null;index" example:"2025-03-15"`
	AppointmentTime  string    `json:"appointment_time" gorm:"not null" example:"14:30"`
	EmergencyReason  string    `json:"emergency_reason" gorm:"not null" example:"Chest pain"`
	Status           string    `json:"status" gorm:"default:SCHEDULED;index" example:"SCHEDULED"`
	BookingTimestamp time.Time `json:"booking_timestamp"`
}

// ValidEmergencyStatus reports whether s is a known lifecycle state.
func ValidEmergencyStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionStatus reports whether an emergency appointment may move from
// one state to another. COMPLETED and CANCELLED are terminal.
func CanTransitionStatus(from, to string) bool {
	switch from {
	case StatusScheduled:
		return to == StatusInProgress || to == StatusCompleted || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
