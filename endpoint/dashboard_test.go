package endpoint

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medicloudhq/portal/model"
)

func TestDoctorDashboard_OrderedByTime(t *testing.T) {
	r, db := setupEndpointTest(t)

	doctor := createTestDoctor(db, t, "Dr. Amelia Stone", "Cardiology", model.DoctorAvailable)
	other := createTestDoctor(db, t, "Dr. Robert Hale", "Neurology", model.DoctorAvailable)

	patients := []model.Patient{
		{PatientID: "P2001", FirstName: "Alice", LastName: "Johnson", Phone: "111"},
		{PatientID: "P2002", FirstName: "Bob", LastName: "Smith", Phone: "222"},
	}
	for i := range patients {
		if err := db.Create(&patients[i]).Error; err != nil {
			t.Fatalf("failed to seed patient: %v", err)
		}
	}

	appointments := []model.Appointment{
		{PatientID: "P2002", DoctorID: doctor.ID, AppointmentDate: "2025-03-15", AppointmentTime: "14:00", AppointmentReason: "Follow-up"},
		{PatientID: "P2001", DoctorID: doctor.ID, AppointmentDate: "2025-03-15", AppointmentTime: "09:00", AppointmentReason: "Checkup"},
		{PatientID: "P2001", DoctorID: doctor.ID, AppointmentDate: "2025-03-16", AppointmentTime: "10:00", AppointmentReason: "Other day"},
		{PatientID: "P2001", DoctorID: other.ID, AppointmentDate: "2025-03-15", AppointmentTime: "11:00", AppointmentReason: "Other doctor"},
	}
	for i := range appointments {
		if err := db.Create(&appointments[i]).Error; err != nil {
			t.Fatalf("failed to seed appointment: %v", err)
		}
	}

	w, response, err := doRequestWithHandler(r, requestSpec{method: http.MethodGet, registerPath: "/dashboard/appointments", requestPath: fmt.Sprintf("/dashboard/appointments?doctor_id=%d&date=2025-03-15", doctor.ID), handler: DoctorDashboard})
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "2025-03-15", data["date"])
	assert.Equal(t, float64(2), data["total_count"])

	rows := data["appointments"].([]interface{})
	first := rows[0].(map[string]interface{})
	assert.Equal(t, "09:00", first["time"])
	assert.Equal(t, "Alice Johnson", first["patient_name"])
	assert.Equal(t, "111", first["phone"])
	assert.Equal(t, "Checkup", first["reason"])

	second := rows[1].(map[string]interface{})
	assert.Equal(t, "14:00", second["time"])
	assert.Equal(t, "Bob Smith", second["patient_name"])
}

func TestDoctorDashboard_MissingDoctorID(t *testing.T) {
	r, db := setupEndpointTest(t)
	_ = db

	w, _, err := doRequestWithHandler(r, requestSpec{method: http.MethodGet, registerPath: "/dashboard/appointments", requestPath: "/dashboard/appointments", handler: DoctorDashboard})
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusBadRequest)
}

func TestDoctorDashboard_DateDefaultsToToday(t *testing.T) {
	r, db := setupEndpointTest(t)

	doctor := createTestDoctor(db, t, "Dr. Amelia Stone", "Cardiology", model.DoctorAvailable)
	if err := db.Create(&model.Patient{PatientID: "P2001", FirstName: "Alice", LastName: "Johnson", Phone: "111"}).Error; err != nil {
		t.Fatalf("failed to seed patient: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	appointment := model.Appointment{PatientID: "P2001", DoctorID: doctor.ID, AppointmentDate: today, AppointmentTime: "09:00"}
	if err := db.Create(&appointment).Error; err != nil {
		t.Fatalf("failed to seed appointment: %v", err)
	}

	w, response, err := doRequestWithHandler(r, requestSpec{method: http.MethodGet, registerPath: "/dashboard/appointments", requestPath: fmt.Sprintf("/dashboard/appointments?doctor_id=%d", doctor.ID), handler: DoctorDashboard})
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, today, data["date"])
	assert.Equal(t, float64(1), data["total_count"])
}

func TestAppointmentStats_Aggregates(t *testing.T) {
	r, db := setupEndpointTest(t)

	cardio := createTestDoctor(db, t, "Dr. Amelia Stone", "Cardiology", model.DoctorAvailable)
	neuro := createTestDoctor(db, t, "Dr. Robert Hale", "Neurology", model.DoctorAvailable)

	if err := db.Create(&model.Patient{PatientID: "P2001", FirstName: "Alice", LastName: "Johnson", Phone: "111"}).Error; err != nil {
		t.Fatalf("failed to seed patient: %v", err)
	}

	appointments := []model.Appointment{
		{PatientID: "P2001", DoctorID: cardio.ID, AppointmentDate: "2025-03-15", AppointmentTime: "09:00"},
		{PatientID: "P2001", DoctorID: cardio.ID, AppointmentDate: "2025-03-16", AppointmentTime: "10:00"},
		{PatientID: "P2001", DoctorID: neuro.ID, AppointmentDate: "2025-03-15", AppointmentTime: "11:00"},
	}
	for i := range appointments {
		if err := db.Create(&appointments[i]).Error; err != nil {
			t.Fatalf("failed to seed appointment: %v", err)
		}
	}

	createTestEmergency(db, t, cardio, model.StatusScheduled, "2025-03-15", "09:30")
	createTestEmergency(db, t, cardio, model.StatusScheduled, "2025-03-15", "10:30")
	createTestEmergency(db, t, neuro, model.StatusCompleted, "2025-03-15", "11:30")

	w, response, err := doRequestWithHandler(r, requestSpec{method: http.MethodGet, registerPath: "/stats/appointments", requestPath: "/stats/appointments", handler: AppointmentStats})
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total_appointments"])
	assert.Equal(t, float64(3), data["total_emergency"])

	byStatus := data["emergency_by_status"].(map[string]interface{})
	assert.Equal(t, float64(2), byStatus[model.StatusScheduled])
	assert.Equal(t, float64(1), byStatus[model.StatusCompleted])

	bySpecialization := data["appointments_by_specialization"].(map[string]interface{})
	assert.Equal(t, float64(2), bySpecialization["Cardiology"])
	assert.Equal(t, float64(1), bySpecialization["Neurology"])
}
