package clientapp

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/phillip-england/hrmslite/internal/hrapi"
	"github.com/phillip-england/hrmslite/internal/views"
)

const healthProbeTimeout = 2 * time.Second

func (s *server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := pageData{
		Tab:            normalizeTab(query.Get("tab")),
		SuccessMessage: query.Get("message"),
		Error:          query.Get("error"),
	}

	switch data.Tab {
	case tabAttendance:
		view := views.NewAttendanceView(s.api)
		defer view.Close()
		preferred := views.Selection{}
		if id, ok := parseEmployeeID(query.Get("employee")); ok {
			preferred = views.Selected(id)
		}
		view.MountWithSelection(r.Context(), preferred)
		data.Attendance = newAttendancePage(view.State(), s.defaultAttendanceForm())
	default:
		view := views.NewDirectoryView(s.api)
		defer view.Close()
		view.Mount(r.Context())
		data.Directory = newDirectoryPage(view.State(), employeeFormView{}, "")
	}

	s.renderDashboard(w, r, data)
}

func (s *server) createEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?tab=employees&error=Invalid+form+submission", http.StatusSeeOther)
		return
	}
	form := employeeFormView{
		EmployeeID: strings.TrimSpace(r.FormValue("employee_id")),
		FullName:   strings.TrimSpace(r.FormValue("full_name")),
		Email:      strings.TrimSpace(r.FormValue("email")),
		Department: strings.TrimSpace(r.FormValue("department")),
	}

	view := views.NewDirectoryView(s.api)
	defer view.Close()

	err := view.Create(r.Context(), hrapi.EmployeeCreate{
		EmployeeID: form.EmployeeID,
		FullName:   form.FullName,
		Email:      form.Email,
		Department: form.Department,
	})
	if err != nil {
		logRequestf(r, "create employee %q failed: %v", form.EmployeeID, err)
		formError := hrapi.ErrorMessage(err)
		view.Mount(r.Context())
		s.renderDashboard(w, r, pageData{
			Tab:       tabEmployees,
			Directory: newDirectoryPage(view.State(), form, formError),
		})
		return
	}

	s.renderDashboard(w, r, pageData{
		Tab:            tabEmployees,
		SuccessMessage: "Employee created",
		Directory:      newDirectoryPage(view.State(), employeeFormView{}, ""),
	})
}

func (s *server) confirmDeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	employees, err := s.api.ListEmployees(r.Context())
	if err != nil {
		http.Redirect(w, r, "/dashboard?tab=employees&error="+url.QueryEscape(hrapi.ErrorMessage(err)), http.StatusSeeOther)
		return
	}
	for _, emp := range employees {
		if emp.ID != id {
			continue
		}
		view := newEmployeeView(emp)
		if err := renderHTMLTemplate(w, s.confirmTmpl, pageData{
			Tab:      tabEmployees,
			Prompt:   views.DeleteEmployeePrompt,
			Employee: &view,
		}); err != nil {
			http.Error(w, "template render failed", http.StatusInternalServerError)
			logRequestf(r, "delete confirm template render failed: %v", err)
		}
		return
	}
	http.Redirect(w, r, "/dashboard?tab=employees&error=Employee+not+found", http.StatusSeeOther)
}

func (s *server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEmployeeID(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?tab=employees&error=Invalid+form+submission", http.StatusSeeOther)
		return
	}
	confirmed := views.ConfirmFunc(func(string) bool {
		return r.FormValue("confirm") == "yes"
	})

	view := views.NewDirectoryView(s.api)
	defer view.Close()
	view.Mount(r.Context())

	deleted, err := view.Delete(r.Context(), id, confirmed)
	if err != nil {
		logRequestf(r, "delete employee %d failed: %v", id, err)
	}
	data := pageData{
		Tab:       tabEmployees,
		Directory: newDirectoryPage(view.State(), employeeFormView{}, ""),
	}
	if deleted {
		data.SuccessMessage = "Employee deleted"
	}
	s.renderDashboard(w, r, data)
}

func (s *server) markAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?tab=attendance&error=Invalid+form+submission", http.StatusSeeOther)
		return
	}
	form := attendanceFormView{
		Date:   strings.TrimSpace(r.FormValue("date")),
		Status: strings.TrimSpace(r.FormValue("status")),
	}
	if form.Status == "" {
		form.Status = string(hrapi.StatusPresent)
	}

	view := views.NewAttendanceView(s.api)
	defer view.Close()

	employeeID, ok := parseEmployeeID(r.FormValue("employee_id"))
	if ok {
		view.MountWithSelection(r.Context(), views.Selected(employeeID))
	} else {
		view.Mount(r.Context())
	}

	state := view.State()
	data := pageData{Tab: tabAttendance}
	if !ok || state.Selection != views.Selected(employeeID) {
		data.Error = "Select an employee before saving attendance"
		data.Attendance = newAttendancePage(state, form)
		s.renderDashboard(w, r, data)
		return
	}

	if err := view.Submit(r.Context(), form.Date, hrapi.AttendanceStatus(form.Status)); err != nil {
		logRequestf(r, "mark attendance for employee %d failed: %v", employeeID, err)
		data.Attendance = newAttendancePage(view.State(), form)
		s.renderDashboard(w, r, data)
		return
	}

	data.SuccessMessage = "Attendance saved"
	data.Attendance = newAttendancePage(view.State(), s.defaultAttendanceForm())
	s.renderDashboard(w, r, data)
}

// systemStatus drives the header badge. It never fails the page.
func (s *server) systemStatus(ctx context.Context) systemStatusView {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if _, err := s.api.Health(ctx); err != nil {
		return systemStatusView{Label: "System Offline", Detail: hrapi.ErrorMessage(err)}
	}
	return systemStatusView{Online: true, Label: "System Online"}
}

func (s *server) defaultAttendanceForm() attendanceFormView {
	return attendanceFormView{
		Date:   s.now().Format("2006-01-02"),
		Status: string(hrapi.StatusPresent),
	}
}

func (s *server) renderDashboard(w http.ResponseWriter, r *http.Request, data pageData) {
	data.System = s.systemStatus(r.Context())
	if err := renderHTMLTemplate(w, s.dashboardTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logRequestf(r, "dashboard template render failed: %v", err)
	}
}
