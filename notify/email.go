package notify

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-gomail/gomail"
)

// EmailParams groups the fields of an outgoing mail.
type EmailParams struct {
	To      string
	Subject string
	Body    string
}

// SendEmail delivers a plain-text mail through the SMTP server configured
// via SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD and SMTP_FROM.
func SendEmail(params EmailParams) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return fmt.Errorf("SMTP not configured")
	}

	port := 587
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && p > 0 {
		port = p
	}
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", params.To)
	m.SetHeader("Subject", params.Subject)
	m.SetBody("text/plain", params.Body)

	d := gomail.NewDialer(host, port, user, password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	return nil
}

// BuildReminderEmail renders the reminder mail for an upcoming appointment.
func BuildReminderEmail(msg ReminderMessage) EmailParams {
	subject := fmt.Sprintf("Appointment reminder for %s", msg.Date)
	body := fmt.Sprintf(
		"Dear %s,\n\nThis is a reminder for your appointment with %s on %s at %s.\n\nPlease arrive 15 minutes early and bring your patient ID (%s).\n\nMediCloud Portal",
		msg.PatientName, msg.DoctorName, msg.Date, msg.Time, msg.PatientID,
	)
	return EmailParams{To: msg.Email, Subject: subject, Body: body}
}

// DeliverReminder sends the reminder mail for a queued message.
func DeliverReminder(msg ReminderMessage) error {
	if msg.Email == "" {
		return fmt.Errorf("no patient email on file for %s", msg.PatientID)
	}
	return SendEmail(BuildReminderEmail(msg))
}
