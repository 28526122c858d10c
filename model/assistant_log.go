package model

import "gorm.io/gorm"

// AssistantLog records one assistant invocation for usage auditing.
// Prompt and answer bodies are never persisted.
type AssistantLog struct {
	gorm.Model
	Mode           string  `json:"mode" gorm:"column:mode;type:varchar(16)"`
	ModelID        string  `json:"model_id" gorm:"column:model_id;type:varchar(128)"`
	LatencySeconds float64 `json:"latency_seconds" gorm:"column:latency_seconds"`
	TokenCount     int     `json:"token_count" gorm:"column:token_count"`
	Status         string  `json:"status" gorm:"column:status;type:varchar(16)"`
	ClientIP       string  `json:"client_ip" gorm:"column:client_ip;type:varchar(45)"`
}
