package model

import "gorm.io/gorm"

// Doctor availability states
const (
	DoctorAvailable   = "AVAILABLE"
	DoctorUnavailable = "UNAVAILABLE"
	DoctorOnLeave     = "ON_LEAVE"
)

// Doctor represents a doctor entity
// @Description Doctor information
type Doctor struct {
	gorm.Model
	ID                 uint   `json:"doctor_id" example:"1"`
	Name               string `json:"name" gorm:"column:name" example:"Dr. Sarah Johnson"`
	Specialization     string `json:"specialization" gorm:"column:specialization" example:"Cardiology"`
	PhoneNumber        string `json:"phone_number" gorm:"column:phone_number" example:"081234567890"`
	Email              string `json:"email" gorm:"column:email" example:"dr.sarah@example.com"`
	AvailabilityStatus string `json:"availability_status" gorm:"column:availability_status;default:AVAILABLE" example:"AVAILABLE"`
}

// ValidAvailabilityStatus reports whether s is a known availability state.
func ValidAvailabilityStatus(s string) bool {
	switch s {
	case DoctorAvailable, DoctorUnavailable, DoctorOnLeave:
		return true
	}
	return false
}
