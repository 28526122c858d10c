package endpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/util"
)

type exportScanRow struct {
	PatientID         string `gorm:"column:patient_id"`
	FirstName         string `gorm:"column:first_name"`
	LastName          string `gorm:"column:last_name"`
	Phone             string `gorm:"column:phone"`
	DoctorName        string `gorm:"column:doctor_name"`
	Specialization    string `gorm:"column:specialization"`
	AppointmentDate   string `gorm:"column:appointment_date"`
	AppointmentTime   string `gorm:"column:appointment_time"`
	AppointmentReason string `gorm:"column:appointment_reason"`
}

func fetchExportRows(db *gorm.DB, dateFrom, dateTo string) ([]exportScanRow, error) {
	query := db.Table("appointments").
		Select("appointments.patient_id, patients.first_name, patients.last_name, patients.phone, doctors.name as doctor_name, doctors.specialization, appointments.appointment_date, appointments.appointment_time, appointments.appointment_reason").
		Joins("JOIN patients ON patients.patient_id = appointments.patient_id").
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Where("appointments.deleted_at IS NULL")

	if dateFrom != "" {
		query = query.Where("appointments.appointment_date >= ?", dateFrom)
	}
	if dateTo != "" {
		query = query.Where("appointments.appointment_date <= ?", dateTo)
	}

	var rows []exportScanRow
	err := query.Order("appointments.appointment_date ASC, appointments.appointment_time ASC").Find(&rows).Error
	return rows, err
}

func appendAppointmentRow(sheet string, file *excelize.File, index int, rows []exportScanRow) *excelize.File {
	rowCount := index + 2
	file.SetCellValue(sheet, fmt.Sprintf("A%v", rowCount), rows[index].PatientID)
	file.SetCellValue(sheet, fmt.Sprintf("B%v", rowCount), rows[index].FirstName+" "+rows[index].LastName)
	file.SetCellValue(sheet, fmt.Sprintf("C%v", rowCount), rows[index].Phone)
	file.SetCellValue(sheet, fmt.Sprintf("D%v", rowCount), rows[index].DoctorName)
	file.SetCellValue(sheet, fmt.Sprintf("E%v", rowCount), rows[index].Specialization)
	file.SetCellValue(sheet, fmt.Sprintf("F%v", rowCount), rows[index].AppointmentDate)
	file.SetCellValue(sheet, fmt.Sprintf("G%v", rowCount), rows[index].AppointmentTime)
	file.SetCellValue(sheet, fmt.Sprintf("H%v", rowCount), rows[index].AppointmentReason)
	return file
}

// ExportAppointments godoc
// @Summary      Export appointments to Excel
// @Description  Download appointments in an optional date range as an XLSX workbook (admin only)
// @Tags         Export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Security     SessionToken
// @Param        date_from query string false "Start date (YYYY-MM-DD)"
// @Param        date_to query string false "End date (YYYY-MM-DD)"
// @Success      200 {file} file "XLSX workbook"
// @Failure      400 {object} util.APIResponse "Invalid date"
// @Failure      401 {object} util.APIResponse "Missing or invalid session"
// @Failure      500 {object} util.APIResponse "Internal error"
// @Router       /export/appointments [get]
func ExportAppointments(c *gin.Context) {
	dateFrom := c.Query("date_from")
	dateTo := c.Query("date_to")
	for _, d := range []string{dateFrom, dateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Invalid date: %s, expected the 2006-01-02 format", d),
				Err: err,
			})
			return
		}
	}

	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return
	}

	rows, err := fetchExportRows(db, dateFrom, dateTo)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve appointments",
			Err: err,
		})
		return
	}

	headers := map[string]string{
		"A1": "Patient ID",
		"B1": "Patient Name",
		"C1": "Phone",
		"D1": "Doctor",
		"E1": "Specialization",
		"F1": "Date",
		"G1": "Time",
		"H1": "Reason",
	}
	file := excelize.NewFile()
	sheet := "Appointments"
	file.NewSheet(sheet)
	file.DeleteSheet("Sheet1")
	for k, v := range headers {
		file.SetCellValue(sheet, k, v)
	}

	for i := 0; i < len(rows); i++ {
		appendAppointmentRow(sheet, file, i, rows)
	}

	filename := filepath.Join(os.TempDir(), fmt.Sprintf("appointments-%d.xlsx", time.Now().UnixNano()))
	if err := file.SaveAs(filename); err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to write spreadsheet",
			Err: err,
		})
		return
	}
	defer os.Remove(filename)

	c.FileAttachment(filename, "appointments.xlsx")
}
