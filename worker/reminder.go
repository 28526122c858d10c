package worker

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/notify"
)

// ReminderScheduler checks for appointments roughly three hours out and
// queues a reminder for each exactly once.
type ReminderScheduler struct {
	DB      *gorm.DB
	enqueue func(notify.ReminderMessage) error
}

// NewReminderScheduler creates a reminder scheduler bound to the shared DB.
func NewReminderScheduler(db *gorm.DB) *ReminderScheduler {
	return &ReminderScheduler{
		DB: db,
		enqueue: func(msg notify.ReminderMessage) error {
			return notify.EnqueueReminder(config.GetSQSClient(), os.Getenv("REMINDER_QUEUE_URL"), msg)
		},
	}
}

// StartReminderCron starts the cron job that checks for appointments
// needing reminders.
func (rs *ReminderScheduler) StartReminderCron() *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.Local)

	scheduler.Every(1).Minutes().Do(func() {
		if err := rs.SendAppointmentReminders(); err != nil {
			log.Printf("Error sending appointment reminders: %v", err)
		}
	})

	scheduler.StartAsync()
	log.Println("Appointment reminder cron job started")

	return scheduler
}

// SendAppointmentReminders queues a reminder for every pending appointment
// whose start lies about three hours ahead. The window is slightly wider
// than the check interval so no appointment slips between two runs.
func (rs *ReminderScheduler) SendAppointmentReminders() error {
	now := time.Now()

	startWindow := now.Add(2*time.Hour + 53*time.Minute)
	endWindow := now.Add(3*time.Hour + 7*time.Minute)

	var appointments []model.Appointment
	err := rs.DB.
		Where("reminder_sent = ? AND appointment_date IN ?", false, windowDates(startWindow, endWindow)).
		Find(&appointments).Error
	if err != nil {
		return fmt.Errorf("failed to query upcoming appointments: %w", err)
	}

	for _, appointment := range appointments {
		at, err := parseDateTime(appointment.AppointmentDate, appointment.AppointmentTime)
		if err != nil {
			log.Printf("Failed to parse appointment time for ID %d: %v", appointment.ID, err)
			continue
		}
		if at.Before(startWindow) || !at.Before(endWindow) {
			continue
		}

		var patient model.Patient
		if err := rs.DB.Where("patient_id = ?", appointment.PatientID).First(&patient).Error; err != nil {
			log.Printf("Failed to find patient for appointment ID %d: %v", appointment.ID, err)
			continue
		}
		if patient.Email == "" {
			continue
		}

		var doctor model.Doctor
		doctorName := ""
		if err := rs.DB.First(&doctor, appointment.DoctorID).Error; err == nil {
			doctorName = doctor.Name
		}

		msg := notify.ReminderMessage{
			AppointmentID: appointment.ID,
			PatientID:     patient.PatientID,
			PatientName:   fmt.Sprintf("%s %s", patient.FirstName, patient.LastName),
			Email:         patient.Email,
			DoctorName:    doctorName,
			Date:          appointment.AppointmentDate,
			Time:          appointment.AppointmentTime,
		}

		if err := rs.enqueue(msg); err != nil {
			log.Printf("Failed to queue reminder for appointment %d: %v", appointment.ID, err)
			continue
		}

		if err := rs.DB.Model(&model.Appointment{}).Where("id = ?", appointment.ID).
			Update("reminder_sent", true).Error; err != nil {
			log.Printf("Failed to mark reminder sent for appointment %d: %v", appointment.ID, err)
			continue
		}

		log.Printf("Reminder queued for %s at %s %s", msg.PatientName, msg.Date, msg.Time)
	}

	return nil
}

// windowDates lists the calendar dates the reminder window touches. The
// window can span midnight, so both ends matter.
func windowDates(start, end time.Time) []string {
	dates := []string{start.Format("2006-01-02")}
	if d := end.Format("2006-01-02"); d != dates[0] {
		dates = append(dates, d)
	}
	return dates
}

func parseDateTime(date, clock string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized appointment time %q %q", date, clock)
}
