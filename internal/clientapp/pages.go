package clientapp

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/phillip-england/hrmslite/internal/hrapi"
	"github.com/phillip-england/hrmslite/internal/views"
)

type pageData struct {
	Tab            string
	SuccessMessage string
	Error          string
	Prompt         string
	System         systemStatusView

	Directory  *directoryPage
	Attendance *attendancePage
	Employee   *employeeView
}

type systemStatusView struct {
	Online bool
	Label  string
	Detail string
}

type employeeView struct {
	ID         int64
	EmployeeID string
	FullName   string
	Email      string
	Department string
	Initials   string
}

type employeeFormView struct {
	EmployeeID string
	FullName   string
	Email      string
	Department string
}

type directoryPage struct {
	Loading   bool
	Saving    bool
	Error     string
	FormError string
	Count     int
	Employees []employeeView
	Form      employeeFormView
}

type attendanceRowView struct {
	ID     int64
	Date   string
	Status string
	Badge  string
}

type attendanceFormView struct {
	Date   string
	Status string
}

type attendancePage struct {
	LoadingEmployees bool
	LoadingRecords   bool
	Saving           bool
	Error            string
	Employees        []employeeView
	HasSelection     bool
	SelectedID       int64
	Selected         *employeeView
	Records          []attendanceRowView
	PresentDays      int
	TotalDays        int
	Form             attendanceFormView
	Statuses         []string
}

func newEmployeeView(emp hrapi.Employee) employeeView {
	return employeeView{
		ID:         emp.ID,
		EmployeeID: emp.EmployeeID,
		FullName:   emp.FullName,
		Email:      emp.Email,
		Department: emp.Department,
		Initials:   initials(emp.FullName),
	}
}

func newDirectoryPage(state views.DirectoryState, form employeeFormView, formError string) *directoryPage {
	employees := state.Employees.Data()
	page := &directoryPage{
		Loading:   state.Employees.IsLoading(),
		Saving:    state.Saving,
		Error:     state.Error,
		FormError: formError,
		Count:     len(employees),
		Employees: make([]employeeView, 0, len(employees)),
		Form:      form,
	}
	for _, emp := range employees {
		page.Employees = append(page.Employees, newEmployeeView(emp))
	}
	return page
}

func newAttendancePage(state views.AttendanceState, form attendanceFormView) *attendancePage {
	employees := state.Employees.Data()
	records := state.Records.Data()
	page := &attendancePage{
		LoadingEmployees: state.Employees.IsLoading(),
		LoadingRecords:   state.Records.IsLoading(),
		Saving:           state.Saving,
		Error:            state.Error,
		Employees:        make([]employeeView, 0, len(employees)),
		HasSelection:     state.Selection.Valid,
		SelectedID:       state.Selection.ID,
		Records:          make([]attendanceRowView, 0, len(records)),
		PresentDays:      state.PresentDays(),
		TotalDays:        state.TotalDays(),
		Form:             form,
		Statuses:         []string{string(hrapi.StatusPresent), string(hrapi.StatusAbsent)},
	}
	for _, emp := range employees {
		page.Employees = append(page.Employees, newEmployeeView(emp))
	}
	if emp, ok := state.SelectedEmployee(); ok {
		selected := newEmployeeView(emp)
		page.Selected = &selected
	}
	for _, rec := range records {
		page.Records = append(page.Records, attendanceRowView{
			ID:     rec.ID,
			Date:   formatAttendanceDate(rec.Date),
			Status: string(rec.Status),
			Badge:  statusBadge(rec.Status),
		})
	}
	return page
}

func statusBadge(status hrapi.AttendanceStatus) string {
	switch status {
	case hrapi.StatusPresent:
		return "present"
	case hrapi.StatusAbsent:
		return "absent"
	default:
		return "other"
	}
}

// initials takes the first letter or digit of the first two words of a name
// that have one.
func initials(fullName string) string {
	var b strings.Builder
	count := 0
	for _, word := range strings.Fields(fullName) {
		idx := strings.IndexFunc(word, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		})
		if idx < 0 {
			continue
		}
		r, _ := utf8.DecodeRuneInString(word[idx:])
		b.WriteRune(unicode.ToUpper(r))
		count++
		if count == 2 {
			break
		}
	}
	return b.String()
}

func formatAttendanceDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format("02 Jan 2006")
		}
	}
	return trimmed
}

func normalizeTab(raw string) string {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case tabAttendance:
		return tabAttendance
	default:
		return tabEmployees
	}
}

func parseEmployeeID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
