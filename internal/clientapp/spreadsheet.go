package clientapp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/gorilla/mux"
	"github.com/phillip-england/hrmslite/internal/hrapi"
	"github.com/phillip-england/hrmslite/internal/views"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes    = 10 << 20
	maxSpreadsheetRow = 5000
)

var (
	employeeHeaders   = []string{"ID", "Employee ID", "Full Name", "Email", "Department"}
	attendanceHeaders = []string{"Date", "Status"}
)

func (s *server) exportEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.api.ListEmployees(r.Context())
	if err != nil {
		http.Error(w, hrapi.ErrorMessage(err), http.StatusBadGateway)
		return
	}
	data, err := buildEmployeesWorkbook(employees)
	if err != nil {
		http.Error(w, "unable to build spreadsheet", http.StatusInternalServerError)
		logRequestf(r, "employees workbook build failed: %v", err)
		return
	}
	writeSpreadsheet(w, "employees.xlsx", data)
}

func (s *server) exportAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	employees, err := s.api.ListEmployees(r.Context())
	if err != nil {
		http.Error(w, hrapi.ErrorMessage(err), http.StatusBadGateway)
		return
	}
	var employee *hrapi.Employee
	for i := range employees {
		if employees[i].ID == id {
			employee = &employees[i]
			break
		}
	}
	if employee == nil {
		http.NotFound(w, r)
		return
	}
	records, err := s.api.ListAttendance(r.Context(), id)
	if err != nil {
		http.Error(w, hrapi.ErrorMessage(err), http.StatusBadGateway)
		return
	}
	data, err := buildAttendanceWorkbook(*employee, records)
	if err != nil {
		http.Error(w, "unable to build spreadsheet", http.StatusInternalServerError)
		logRequestf(r, "attendance workbook build failed: %v", err)
		return
	}
	writeSpreadsheet(w, "attendance-"+employeeFileSlug(*employee)+".xlsx", data)
}

func (s *server) importEmployees(w http.ResponseWriter, r *http.Request) {
	rows, err := readUploadedRows(r, "employees_file")
	if err != nil {
		http.Redirect(w, r, "/dashboard?tab=employees&error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	payloads, err := parseEmployeeRows(rows)
	if err != nil {
		http.Redirect(w, r, "/dashboard?tab=employees&error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}

	created := 0
	var failures []string
	for _, row := range payloads {
		if _, err := s.api.CreateEmployee(r.Context(), row.payload); err != nil {
			failures = append(failures, fmt.Sprintf("row %d: %s", row.line, hrapi.ErrorMessage(err)))
			continue
		}
		created++
	}
	redirectImportResult(w, r, "/dashboard?tab=employees", fmt.Sprintf("Imported %d employee(s)", created), failures)
}

func (s *server) importAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	target := "/dashboard?tab=attendance&employee=" + strconv.FormatInt(id, 10)
	rows, err := readUploadedRows(r, "attendance_file")
	if err != nil {
		http.Redirect(w, r, target+"&error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	entries, err := parseAttendanceRows(rows)
	if err != nil {
		http.Redirect(w, r, target+"&error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}

	marked := 0
	var failures []string
	for _, entry := range entries {
		_, err := s.api.MarkAttendance(r.Context(), hrapi.AttendanceCreate{
			EmployeeID: id,
			Date:       entry.date,
			Status:     entry.status,
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("row %d: %s", entry.line, hrapi.ErrorMessage(err)))
			continue
		}
		marked++
	}
	redirectImportResult(w, r, target, fmt.Sprintf("Imported %d attendance record(s)", marked), failures)
}

func redirectImportResult(w http.ResponseWriter, r *http.Request, target, message string, failures []string) {
	target += "&message=" + url.QueryEscape(message)
	if len(failures) > 0 {
		shown := failures
		if len(shown) > 5 {
			shown = append(append([]string{}, failures[:5]...), fmt.Sprintf("and %d more", len(failures)-5))
		}
		target += "&error=" + url.QueryEscape(strings.Join(shown, "; "))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func writeSpreadsheet(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func buildEmployeesWorkbook(employees []hrapi.Employee) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheet := "Employees"
	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := file.SetSheetRow(sheet, "A1", &employeeHeaders); err != nil {
		return nil, err
	}
	for i, emp := range employees {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{emp.ID, emp.EmployeeID, emp.FullName, emp.Email, emp.Department}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := styleHeaderRow(file, sheet, len(employeeHeaders)); err != nil {
		return nil, err
	}
	return writeWorkbook(file)
}

func buildAttendanceWorkbook(employee hrapi.Employee, records []hrapi.AttendanceRecord) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheet := "Attendance"
	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := file.SetSheetRow(sheet, "A1", &attendanceHeaders); err != nil {
		return nil, err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{rec.Date, string(rec.Status)}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := styleHeaderRow(file, sheet, len(attendanceHeaders)); err != nil {
		return nil, err
	}

	summary := "Summary"
	if _, err := file.NewSheet(summary); err != nil {
		return nil, err
	}
	summaryRows := [][]any{
		{"Employee", employee.FullName},
		{"Employee ID", employee.EmployeeID},
		{"Department", employee.Department},
		{"Present Days", views.PresentDays(records)},
		{"Total Days", views.TotalDays(records)},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(summary, cell, &row); err != nil {
			return nil, err
		}
	}
	return writeWorkbook(file)
}

func styleHeaderRow(file *excelize.File, sheet string, columns int) error {
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return file.SetCellStyle(sheet, "A1", last, style)
}

func writeWorkbook(file *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readUploadedRows(r *http.Request, field string) ([][]string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.New("invalid upload")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, errors.New("spreadsheet file is required")
	}
	defer file.Close()

	rows, err := readRowsFromSpreadsheet(io.LimitReader(file, maxUploadBytes), header.Filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read spreadsheet: %w", err)
	}
	return rows, nil
}

func readRowsFromSpreadsheet(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, errors.New("no worksheet found")
		}
		rows := workbook.ReadAllCells(maxSpreadsheetRow)
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	case ".xlsx", ".xlsm":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, errors.New("no worksheet found")
		}
		// Raw values keep date cells as serials instead of their display format.
		rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		if len(rows) > maxSpreadsheetRow {
			rows = rows[:maxSpreadsheetRow]
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
}

type employeeRow struct {
	line    int
	payload hrapi.EmployeeCreate
}

type attendanceRow struct {
	line   int
	date   string
	status hrapi.AttendanceStatus
}

// parseEmployeeRows expects a header row naming employee id, full name,
// email and department columns in any order.
func parseEmployeeRows(rows [][]string) ([]employeeRow, error) {
	header := headerIndex(rows[0])
	idCol := header.find("employee id", "employee_id", "employee code", "code")
	nameCol := header.find("full name", "full_name", "name")
	emailCol := header.find("email", "email address")
	deptCol := header.find("department", "dept")
	if idCol < 0 || nameCol < 0 || emailCol < 0 || deptCol < 0 {
		return nil, errors.New("header row must include Employee ID, Full Name, Email and Department")
	}

	out := make([]employeeRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		payload := hrapi.EmployeeCreate{
			EmployeeID: cellValue(row, idCol),
			FullName:   cellValue(row, nameCol),
			Email:      cellValue(row, emailCol),
			Department: cellValue(row, deptCol),
		}
		if payload == (hrapi.EmployeeCreate{}) {
			continue
		}
		out = append(out, employeeRow{line: i + 2, payload: payload})
	}
	if len(out) == 0 {
		return nil, errors.New("no employee rows found")
	}
	return out, nil
}

func parseAttendanceRows(rows [][]string) ([]attendanceRow, error) {
	header := headerIndex(rows[0])
	dateCol := header.find("date", "day")
	statusCol := header.find("status", "attendance")
	if dateCol < 0 || statusCol < 0 {
		return nil, errors.New("header row must include Date and Status")
	}

	out := make([]attendanceRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rawDate := cellValue(row, dateCol)
		rawStatus := cellValue(row, statusCol)
		if rawDate == "" && rawStatus == "" {
			continue
		}
		date, ok := normalizeAttendanceDate(rawDate)
		if !ok {
			return nil, fmt.Errorf("row %d: unrecognized date %q", i+2, rawDate)
		}
		out = append(out, attendanceRow{line: i + 2, date: date, status: normalizeStatus(rawStatus)})
	}
	if len(out) == 0 {
		return nil, errors.New("no attendance rows found")
	}
	return out, nil
}

type headerIndex []string

func (h headerIndex) find(names ...string) int {
	for idx, cell := range h {
		normalized := normalizeHeader(cell)
		for _, name := range names {
			if normalized == name {
				return idx
			}
		}
	}
	return -1
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// normalizeStatus maps case variants of the known statuses onto their
// canonical spelling; anything else is passed through for the backend to judge.
func normalizeStatus(raw string) hrapi.AttendanceStatus {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "present", "p":
		return hrapi.StatusPresent
	case "absent", "a":
		return hrapi.StatusAbsent
	}
	return hrapi.AttendanceStatus(trimmed)
}

func normalizeAttendanceDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	// Excel stores dates as serial day numbers.
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return parsed.Format("2006-01-02"), true
			}
		}
		return "", false
	}

	layouts := []string{
		"2006-01-02",
		"1/2/2006",
		"01/02/2006",
		"1/2/06",
		"01/02/06",
		"1-2-2006",
		"01-02-2006",
		"1-2-06",
		"01-02-06",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"2 January 2006",
		"2006/01/02",
		"1/2/2006 3:04 PM",
		"01/02/2006 03:04 PM",
		"1/2/2006 3:04:05 PM",
		"01/02/2006 03:04:05 PM",
		"1/2/2006 15:04",
		"01/02/2006 15:04",
		"1/2/2006 15:04:05",
		"01/02/2006 15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02"), true
		}
	}
	return "", false
}

func employeeFileSlug(emp hrapi.Employee) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, emp.EmployeeID)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return strconv.FormatInt(emp.ID, 10)
	}
	return slug
}
