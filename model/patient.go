package model

import "gorm.io/gorm"

type Patient struct {
	gorm.Model
	PatientID string `json:"patient_id" gorm:"uniqueIndex;size:191"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	Email     string `json:"email"`
}
