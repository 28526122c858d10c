package model

import "gorm.io/gorm"

// DoctorSchedule represents one weekly availability window for a doctor.
// Times are "15:04" strings, matching the booking payloads.
type DoctorSchedule struct {
	gorm.Model
	DoctorID  uint   `json:"doctor_id" gorm:"not null;index"`
	DayOfWeek string `json:"day_of_week" gorm:"not null"`
	StartTime string `json:"start_time" gorm:"not null"`
	EndTime   string `json:"end_time" gorm:"not null"`
}
