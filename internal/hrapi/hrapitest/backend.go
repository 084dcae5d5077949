// Package hrapitest provides an in-memory HRMS backend for tests.
package hrapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/phillip-england/hrmslite/internal/hrapi"
)

type attendanceRow struct {
	employeeID int64
	record     hrapi.AttendanceRecord
}

// Backend mirrors the REST surface the client consumes. Handlers can be
// overridden per route with Intercept to inject failures or delays.
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	nextID     int64
	employees  []hrapi.Employee
	attendance []attendanceRow
	calls      map[string]int
	intercepts map[string]http.HandlerFunc
}

func NewBackend() *Backend {
	b := &Backend{
		nextID:     1,
		calls:      map[string]int{},
		intercepts: map[string]http.HandlerFunc{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

func (b *Backend) Close() {
	b.Server.Close()
}

func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) Client() *hrapi.Client {
	return hrapi.New(b.Server.URL, b.Server.Client())
}

// Intercept replaces the handler for a route key such as "GET /employees/"
// or "GET /attendance/{id}".
func (b *Backend) Intercept(route string, handler http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intercepts[route] = handler
}

// Calls returns how many times a route key was requested.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *Backend) SeedEmployee(payload hrapi.EmployeeCreate) hrapi.Employee {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertEmployeeLocked(payload)
}

func (b *Backend) SeedAttendance(employeeID int64, date string, status hrapi.AttendanceStatus) hrapi.AttendanceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertAttendanceLocked(employeeID, date, status)
}

func (b *Backend) insertEmployeeLocked(payload hrapi.EmployeeCreate) hrapi.Employee {
	emp := hrapi.Employee{
		ID:         b.nextID,
		EmployeeID: payload.EmployeeID,
		FullName:   payload.FullName,
		Email:      payload.Email,
		Department: payload.Department,
	}
	b.nextID++
	b.employees = append(b.employees, emp)
	return emp
}

func (b *Backend) insertAttendanceLocked(employeeID int64, date string, status hrapi.AttendanceStatus) hrapi.AttendanceRecord {
	rec := hrapi.AttendanceRecord{ID: b.nextID, Date: date, Status: status}
	b.nextID++
	b.attendance = append(b.attendance, attendanceRow{employeeID: employeeID, record: rec})
	return rec
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	route := routeKey(r)

	b.mu.Lock()
	b.calls[route]++
	intercept := b.intercepts[route]
	b.mu.Unlock()

	if intercept != nil {
		intercept(w, r)
		return
	}

	switch route {
	case "GET /health":
		WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "connected"})
	case "GET /employees/":
		b.listEmployees(w)
	case "POST /employees/":
		b.createEmployee(w, r)
	case "DELETE /employees/{id}":
		b.deleteEmployee(w, r)
	case "GET /attendance/{id}":
		b.listAttendance(w, r)
	case "POST /attendance/":
		b.markAttendance(w, r)
	default:
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (b *Backend) listEmployees(w http.ResponseWriter) {
	b.mu.Lock()
	out := append([]hrapi.Employee{}, b.employees...)
	b.mu.Unlock()
	WriteJSON(w, http.StatusOK, out)
}

func (b *Backend) createEmployee(w http.ResponseWriter, r *http.Request) {
	var payload hrapi.EmployeeCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, emp := range b.employees {
		if emp.EmployeeID == payload.EmployeeID || emp.Email == payload.Email {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Employee with same email or employee ID already exists"})
			return
		}
	}
	WriteJSON(w, http.StatusCreated, b.insertEmployeeLocked(payload))
}

func (b *Backend) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/employees/")
	if !ok {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid id"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := -1
	for i, emp := range b.employees {
		if emp.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Employee not found"})
		return
	}
	for _, row := range b.attendance {
		if row.employeeID == id {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cannot delete employee with existing attendance records"})
			return
		}
	}
	b.employees = append(b.employees[:idx], b.employees[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/attendance/")
	if !ok {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid id"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasEmployeeLocked(id) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Employee not found"})
		return
	}
	out := []hrapi.AttendanceRecord{}
	for _, row := range b.attendance {
		if row.employeeID == id {
			out = append(out, row.record)
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

func (b *Backend) markAttendance(w http.ResponseWriter, r *http.Request) {
	var payload hrapi.AttendanceCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasEmployeeLocked(payload.EmployeeID) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Employee not found"})
		return
	}
	if !payload.Status.Known() {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid status. Allowed values: ['Present', 'Absent']"})
		return
	}
	for _, row := range b.attendance {
		if row.employeeID == payload.EmployeeID && row.record.Date == payload.Date {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Attendance already marked for this employee on this date"})
			return
		}
	}
	rec := b.insertAttendanceLocked(payload.EmployeeID, payload.Date, payload.Status)
	WriteJSON(w, http.StatusCreated, hrapi.MarkAttendanceResult{Message: "Attendance marked successfully", AttendanceID: rec.ID})
}

func (b *Backend) hasEmployeeLocked(id int64) bool {
	for _, emp := range b.employees {
		if emp.ID == id {
			return true
		}
	}
	return false
}

func routeKey(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/employees/") && path != "/employees/":
		return r.Method + " /employees/{id}"
	case strings.HasPrefix(path, "/attendance/") && path != "/attendance/":
		return r.Method + " /attendance/{id}"
	}
	return r.Method + " " + path
}

func pathID(path, prefix string) (int64, bool) {
	raw := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
