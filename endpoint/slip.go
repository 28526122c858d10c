package endpoint

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

// buildEmergencySlipPDF renders a printable slip for an emergency booking.
func buildEmergencySlipPDF(appointment model.EmergencyAppointment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(178, 34, 34)
	pdf.CellFormat(0, 10, "MediCloud Healthcare Portal", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "Emergency Department", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Emergency Appointment Slip", "1", 1, "C", false, 0, "")
	addSlipDetail(pdf, "Slip No", fmt.Sprintf("E-%d", appointment.ID), true)
	addSlipDetail(pdf, "Patient Name", appointment.PatientName, true)
	addSlipDetail(pdf, "Patient Phone", appointment.PatientPhone, true)
	addSlipDetail(pdf, "Doctor", appointment.DoctorName, true)
	addSlipDetail(pdf, "Specialization", appointment.Specialization, true)

	pdf.CellFormat(0, 10, "Appointment Details", "1", 1, "C", false, 0, "")
	addSlipDetail(pdf, "Date", appointment.AppointmentDate, false)
	addSlipDetail(pdf, "Time", appointment.AppointmentTime, false)
	addSlipDetail(pdf, "Reason", appointment.EmergencyReason, false)
	addSlipDetail(pdf, "Status", appointment.Status, false)
	addSlipDetail(pdf, "Booked At", appointment.BookingTimestamp.Format("2006-01-02 15:04"), false)

	pdf.MultiCell(0, 5, "Please present this slip at the emergency desk on arrival.", "", "L", false)

	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated slip", "", 1, "R", false, 0, "")

	var pdfBuffer bytes.Buffer
	if err := pdf.Output(&pdfBuffer); err != nil {
		return nil, err
	}
	return pdfBuffer.Bytes(), nil
}

func addSlipDetail(pdf *gofpdf.Fpdf, label, value string, isHeader bool) {
	if isHeader {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(255, 255, 255)
	} else {
		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(240, 240, 240)
	}
	pdf.CellFormat(45, 10, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 10, value, "1", 1, "", false, 0, "")
}

// EmergencySlip godoc
// @Summary      Download an emergency appointment slip
// @Description  Render the emergency booking as a printable PDF slip
// @Tags         Emergency
// @Produce      application/pdf
// @Param        id path int true "Emergency appointment ID"
// @Success      200 {file} file "PDF slip"
// @Failure      400 {object} util.APIResponse "Invalid ID"
// @Failure      404 {object} util.APIResponse "Emergency appointment not found"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /emergency/{id}/slip [get]
func EmergencySlip(c *gin.Context) {
	emergencyID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid emergency appointment ID",
			Err: err,
		})
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	var appointment model.EmergencyAppointment
	if err := db.First(&appointment, emergencyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{
				Msg: "Emergency appointment not found",
				Err: err,
			})
			return
		}
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to look up emergency appointment",
			Err: err,
		})
		return
	}

	pdfBytes, err := buildEmergencySlipPDF(appointment)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to render slip",
			Err: err,
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=emergency-slip-%d.pdf", appointment.ID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
