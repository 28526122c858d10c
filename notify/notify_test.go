package notify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeSQS struct {
	sqsiface.SQSAPI
	sendInputs    []*sqs.SendMessageInput
	receiveInputs []*sqs.ReceiveMessageInput
	receiveOutput *sqs.ReceiveMessageOutput
	receiveErr    error
	deleteInputs  []*sqs.DeleteMessageInput
}

func (f *fakeSQS) SendMessage(in *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
	f.sendInputs = append(f.sendInputs, in)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(in *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	f.receiveInputs = append(f.receiveInputs, in)
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	if f.receiveOutput != nil {
		return f.receiveOutput, nil
	}
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(in *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	f.deleteInputs = append(f.deleteInputs, in)
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeSNS struct {
	snsiface.SNSAPI
	publishInputs []*sns.PublishInput
}

func (f *fakeSNS) Publish(in *sns.PublishInput) (*sns.PublishOutput, error) {
	f.publishInputs = append(f.publishInputs, in)
	return &sns.PublishOutput{}, nil
}

func sampleReminder() ReminderMessage {
	return ReminderMessage{
		AppointmentID: 7,
		PatientID:     "P20250101120000",
		PatientName:   "Jane Roe",
		Email:         "jane@example.com",
		DoctorName:    "Dr. Smith",
		Date:          "2025-01-01",
		Time:          "15:00",
	}
}

func TestBuildReminderEmail(t *testing.T) {
	params := BuildReminderEmail(sampleReminder())

	assert.Equal(t, "jane@example.com", params.To)
	assert.Contains(t, params.Subject, "2025-01-01")
	assert.Contains(t, params.Body, "Jane Roe")
	assert.Contains(t, params.Body, "Dr. Smith")
	assert.Contains(t, params.Body, "15:00")
	assert.Contains(t, params.Body, "P20250101120000")
}

func TestDeliverReminderWithoutEmail(t *testing.T) {
	msg := sampleReminder()
	msg.Email = ""

	err := DeliverReminder(msg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no patient email")
}

func TestEnqueueReminderQueuesMessage(t *testing.T) {
	fake := &fakeSQS{}

	err := EnqueueReminder(fake, "https://sqs.example/reminders", sampleReminder())
	assert.NoError(t, err)
	if len(fake.sendInputs) != 1 {
		t.Fatalf("expected one SendMessage call, got %d", len(fake.sendInputs))
	}

	in := fake.sendInputs[0]
	assert.Equal(t, "https://sqs.example/reminders", aws.StringValue(in.QueueUrl))

	var decoded ReminderMessage
	if err := json.Unmarshal([]byte(aws.StringValue(in.MessageBody)), &decoded); err != nil {
		t.Fatalf("failed to decode queued body: %v", err)
	}
	assert.Equal(t, uint(7), decoded.AppointmentID)
	assert.Equal(t, "jane@example.com", decoded.Email)

	// Every queued reminder is stamped with a notification ID.
	if _, err := uuid.Parse(decoded.NotificationID); err != nil {
		t.Fatalf("expected a UUID notification id, got %q: %v", decoded.NotificationID, err)
	}
}

func TestEnqueueReminderDirectWithoutQueue(t *testing.T) {
	// With no queue configured delivery is attempted directly; without an
	// SMTP host that surfaces as a configuration error.
	t.Setenv("SMTP_HOST", "")

	err := EnqueueReminder(nil, "", sampleReminder())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP not configured")
}

func TestReminderWorkerPollDeliversAndDeletes(t *testing.T) {
	body, _ := json.Marshal(sampleReminder())
	fake := &fakeSQS{receiveOutput: &sqs.ReceiveMessageOutput{
		Messages: []*sqs.Message{{
			Body:          aws.String(string(body)),
			ReceiptHandle: aws.String("handle-1"),
		}},
	}}

	w := NewReminderWorker(fake, "https://sqs.example/reminders")
	var delivered []ReminderMessage
	w.deliver = func(m ReminderMessage) error {
		delivered = append(delivered, m)
		return nil
	}

	w.poll()

	if len(fake.receiveInputs) != 1 {
		t.Fatalf("expected one ReceiveMessage call, got %d", len(fake.receiveInputs))
	}
	recv := fake.receiveInputs[0]
	assert.Equal(t, int64(20), aws.Int64Value(recv.WaitTimeSeconds))
	assert.Equal(t, int64(300), aws.Int64Value(recv.VisibilityTimeout))

	assert.Len(t, delivered, 1)
	assert.Equal(t, "P20250101120000", delivered[0].PatientID)

	if len(fake.deleteInputs) != 1 {
		t.Fatalf("expected one DeleteMessage call, got %d", len(fake.deleteInputs))
	}
	assert.Equal(t, "handle-1", aws.StringValue(fake.deleteInputs[0].ReceiptHandle))
}

func TestReminderWorkerPollKeepsMessageOnFailure(t *testing.T) {
	body, _ := json.Marshal(sampleReminder())
	fake := &fakeSQS{receiveOutput: &sqs.ReceiveMessageOutput{
		Messages: []*sqs.Message{{
			Body:          aws.String(string(body)),
			ReceiptHandle: aws.String("handle-1"),
		}},
	}}

	w := NewReminderWorker(fake, "https://sqs.example/reminders")
	w.deliver = func(ReminderMessage) error {
		return errors.New("smtp down")
	}

	w.poll()

	assert.Empty(t, fake.deleteInputs, "failed deliveries must stay on the queue")
}

func TestReminderWorkerPollSkipsUnparseable(t *testing.T) {
	fake := &fakeSQS{receiveOutput: &sqs.ReceiveMessageOutput{
		Messages: []*sqs.Message{{
			Body:          aws.String("{not json"),
			ReceiptHandle: aws.String("handle-1"),
		}},
	}}

	w := NewReminderWorker(fake, "https://sqs.example/reminders")
	called := false
	w.deliver = func(ReminderMessage) error {
		called = true
		return nil
	}

	w.poll()

	assert.False(t, called)
	assert.Empty(t, fake.deleteInputs)
}

func TestReminderWorkerStartWithoutQueue(t *testing.T) {
	w := NewReminderWorker(nil, "")
	w.Start()
	assert.False(t, w.started)
}

func TestPublishEmergencyAlert(t *testing.T) {
	t.Setenv("ALERT_TOPIC_ARN", "arn:aws:sns:us-east-1:123456789012:oncall")
	fake := &fakeSNS{}

	err := PublishEmergencyAlert(fake, EmergencyAlert{
		EmergencyID:     42,
		PatientName:     "John Doe",
		DoctorName:      "Dr. Smith",
		Specialization:  "Cardiology",
		AppointmentDate: "2025-01-01",
		AppointmentTime: "09:30",
		Reason:          "chest pain",
	})
	assert.NoError(t, err)
	if len(fake.publishInputs) != 1 {
		t.Fatalf("expected one Publish call, got %d", len(fake.publishInputs))
	}

	in := fake.publishInputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:oncall", aws.StringValue(in.TopicArn))
	assert.Contains(t, aws.StringValue(in.Subject), "#42")

	var decoded EmergencyAlert
	if err := json.Unmarshal([]byte(aws.StringValue(in.Message)), &decoded); err != nil {
		t.Fatalf("failed to decode alert payload: %v", err)
	}
	assert.Equal(t, "John Doe", decoded.PatientName)
	assert.Equal(t, "Cardiology", decoded.Specialization)
}

func TestPublishEmergencyAlertSkippedWithoutTopic(t *testing.T) {
	t.Setenv("ALERT_TOPIC_ARN", "")
	fake := &fakeSNS{}

	err := PublishEmergencyAlert(fake, EmergencyAlert{EmergencyID: 1})
	assert.NoError(t, err)
	assert.Empty(t, fake.publishInputs)

	err = PublishEmergencyAlert(nil, EmergencyAlert{EmergencyID: 1})
	assert.NoError(t, err)
}
