package hrapi

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
)

// Known reports whether the status is one the backend documents. Other
// values are still carried and rendered as received.
func (s AttendanceStatus) Known() bool {
	return s == StatusPresent || s == StatusAbsent
}

type Employee struct {
	ID         int64  `json:"id"`
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type EmployeeCreate struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type AttendanceRecord struct {
	ID     int64            `json:"id"`
	Date   string           `json:"date"`
	Status AttendanceStatus `json:"status"`
}

type AttendanceCreate struct {
	EmployeeID int64            `json:"employee_id"`
	Date       string           `json:"date"`
	Status     AttendanceStatus `json:"status"`
}

type MarkAttendanceResult struct {
	Message      string `json:"message"`
	AttendanceID int64  `json:"attendance_id"`
}

type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error"`
}
