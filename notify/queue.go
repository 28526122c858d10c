package notify

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/google/uuid"
)

// ReminderMessage is the payload queued for each upcoming appointment. The
// notification ID ties enqueue and delivery log lines together.
type ReminderMessage struct {
	NotificationID string `json:"notification_id"`
	AppointmentID  uint   `json:"appointment_id"`
	PatientID      string `json:"patient_id"`
	PatientName    string `json:"patient_name"`
	Email          string `json:"email"`
	DoctorName     string `json:"doctor_name"`
	Date           string `json:"appointment_date"`
	Time           string `json:"appointment_time"`
}

// EnqueueReminder queues a reminder for asynchronous delivery. Without a
// queue configured the reminder is delivered directly instead.
func EnqueueReminder(sqsAPI sqsiface.SQSAPI, queueURL string, msg ReminderMessage) error {
	if msg.NotificationID == "" {
		msg.NotificationID = uuid.NewString()
	}
	if sqsAPI == nil || queueURL == "" {
		return DeliverReminder(msg)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder message: %w", err)
	}

	_, err = sqsAPI.SendMessage(&sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

// ReminderWorker long-polls the reminder queue and delivers each message by
// email. Messages are deleted only after successful delivery so a failed
// send becomes visible again for retry.
type ReminderWorker struct {
	started  bool
	sqsAPI   sqsiface.SQSAPI
	queueURL string
	deliver  func(ReminderMessage) error
	stop     chan struct{}
}

// NewReminderWorker wires a worker to the queue. Start is a no-op when the
// queue is not configured.
func NewReminderWorker(sqsAPI sqsiface.SQSAPI, queueURL string) *ReminderWorker {
	return &ReminderWorker{
		sqsAPI:   sqsAPI,
		queueURL: queueURL,
		deliver:  DeliverReminder,
		stop:     make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (w *ReminderWorker) Start() {
	if w.started || w.sqsAPI == nil || w.queueURL == "" {
		return
	}
	w.started = true

	go func() {
		for {
			select {
			case <-w.stop:
				return
			default:
			}
			w.poll()
		}
	}()
}

// Stop signals the polling loop to exit after the in-flight receive returns.
func (w *ReminderWorker) Stop() {
	close(w.stop)
}

// poll performs one long-poll receive and processes whatever it returns.
func (w *ReminderWorker) poll() {
	res, err := w.sqsAPI.ReceiveMessage(&sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(w.queueURL),
		MaxNumberOfMessages: aws.Int64(1),
		VisibilityTimeout:   aws.Int64(60 * 5),
		WaitTimeSeconds:     aws.Int64(20),
	})
	if err != nil {
		log.Printf("Failed to receive reminder messages: %v", err)
		return
	}

	for _, item := range res.Messages {
		var msg ReminderMessage
		if err := json.Unmarshal([]byte(aws.StringValue(item.Body)), &msg); err != nil {
			log.Printf("Failed to decode reminder message: %v", err)
			continue
		}

		if err := w.deliver(msg); err != nil {
			log.Printf("Failed to deliver reminder %s for appointment %d: %v", msg.NotificationID, msg.AppointmentID, err)
			continue
		}

		if _, err := w.sqsAPI.DeleteMessage(&sqs.DeleteMessageInput{
			QueueUrl:      aws.String(w.queueURL),
			ReceiptHandle: item.ReceiptHandle,
		}); err != nil {
			log.Printf("Failed to delete reminder message: %v", err)
		}
	}
}
