package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// EmergencyAlert is the payload published to the on-call topic when an
// emergency appointment is booked.
type EmergencyAlert struct {
	EmergencyID     uint   `json:"emergency_id"`
	PatientName     string `json:"patient_name"`
	DoctorName      string `json:"doctor_name"`
	Specialization  string `json:"specialization"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Reason          string `json:"reason"`
}

// PublishEmergencyAlert notifies the on-call topic about a new emergency
// booking. Publishing is skipped when ALERT_TOPIC_ARN is unset so local
// setups work without SNS.
func PublishEmergencyAlert(snsAPI snsiface.SNSAPI, alert EmergencyAlert) error {
	topic := os.Getenv("ALERT_TOPIC_ARN")
	if snsAPI == nil || topic == "" {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency alert: %w", err)
	}

	_, err = snsAPI.Publish(&sns.PublishInput{
		TopicArn: aws.String(topic),
		Subject:  aws.String(fmt.Sprintf("Emergency appointment #%d", alert.EmergencyID)),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish emergency alert: %w", err)
	}
	return nil
}
