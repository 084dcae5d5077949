package views

import (
	"context"
	"sync"

	"github.com/phillip-england/hrmslite/internal/hrapi"
)

type AttendanceAPI interface {
	ListEmployees(ctx context.Context) ([]hrapi.Employee, error)
	ListAttendance(ctx context.Context, employeeID int64) ([]hrapi.AttendanceRecord, error)
	MarkAttendance(ctx context.Context, payload hrapi.AttendanceCreate) (hrapi.MarkAttendanceResult, error)
}

// Selection is the employee whose history is shown. The zero value means none.
type Selection struct {
	ID    int64
	Valid bool
}

func Selected(id int64) Selection {
	return Selection{ID: id, Valid: true}
}

type AttendanceState struct {
	Employees Resource[[]hrapi.Employee]
	Records   Resource[[]hrapi.AttendanceRecord]
	Selection Selection
	Saving    bool
	Error     string
}

func (s AttendanceState) PresentDays() int {
	return PresentDays(s.Records.Data())
}

func (s AttendanceState) TotalDays() int {
	return TotalDays(s.Records.Data())
}

func (s AttendanceState) SelectedEmployee() (hrapi.Employee, bool) {
	if !s.Selection.Valid {
		return hrapi.Employee{}, false
	}
	for _, emp := range s.Employees.Data() {
		if emp.ID == s.Selection.ID {
			return emp, true
		}
	}
	return hrapi.Employee{}, false
}

func PresentDays(records []hrapi.AttendanceRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Status == hrapi.StatusPresent {
			n++
		}
	}
	return n
}

func TotalDays(records []hrapi.AttendanceRecord) int {
	return len(records)
}

// AttendanceView owns the employee picker and the selected employee's
// history. Every records fetch carries the generation it was issued under;
// only the newest generation may write its result.
type AttendanceView struct {
	api AttendanceAPI

	mu            sync.Mutex
	employees     Resource[[]hrapi.Employee]
	records       Resource[[]hrapi.AttendanceRecord]
	selection     Selection
	generation    uint64
	cancelRecords context.CancelFunc
	saving        bool
	errMsg        string
	closed        bool
}

func NewAttendanceView(api AttendanceAPI) *AttendanceView {
	return &AttendanceView{
		api:       api,
		employees: Idle[[]hrapi.Employee](),
		records:   Idle[[]hrapi.AttendanceRecord](),
	}
}

func (v *AttendanceView) State() AttendanceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := AttendanceState{
		Employees: v.employees,
		Records:   v.records,
		Selection: v.selection,
		Saving:    v.saving,
		Error:     v.errMsg,
	}
	state.Employees.data = append([]hrapi.Employee(nil), v.employees.data...)
	state.Records.data = append([]hrapi.AttendanceRecord(nil), v.records.data...)
	return state
}

func (v *AttendanceView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.generation++
	if v.cancelRecords != nil {
		v.cancelRecords()
		v.cancelRecords = nil
	}
}

// Mount loads the employee list and selects the first employee in backend
// order, or clears the selection when there are none.
func (v *AttendanceView) Mount(ctx context.Context) {
	v.MountWithSelection(ctx, Selection{})
}

// MountWithSelection is Mount with a preferred employee. The preference is
// honoured only when that employee is in the fetched list.
func (v *AttendanceView) MountWithSelection(ctx context.Context, preferred Selection) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.errMsg = ""
	v.employees = Loading(v.employees.data)
	v.mu.Unlock()

	employees, err := v.api.ListEmployees(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if err != nil {
		v.errMsg = hrapi.ErrorMessage(err)
		v.employees = Errored[[]hrapi.Employee](v.errMsg)
		v.mu.Unlock()
		v.ClearSelection()
		return
	}
	v.employees = Ready(employees)
	v.mu.Unlock()

	if len(employees) == 0 {
		v.ClearSelection()
		return
	}
	target := employees[0].ID
	if preferred.Valid {
		for _, emp := range employees {
			if emp.ID == preferred.ID {
				target = emp.ID
				break
			}
		}
	}
	v.Select(ctx, target)
}

// ClearSelection drops the selection and empties the records locally.
func (v *AttendanceView) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.generation++
	if v.cancelRecords != nil {
		v.cancelRecords()
		v.cancelRecords = nil
	}
	v.selection = Selection{}
	v.records = Ready([]hrapi.AttendanceRecord{})
}

// Select switches to employee id and replaces the records with its history.
// A fetch superseded by a later Select is cancelled and its result dropped.
func (v *AttendanceView) Select(ctx context.Context, id int64) {
	v.loadRecords(ctx, Selected(id), false)
}

func (v *AttendanceView) loadRecords(ctx context.Context, sel Selection, keepPrevious bool) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.generation++
	gen := v.generation
	if v.cancelRecords != nil {
		v.cancelRecords()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancelRecords = cancel
	v.selection = sel
	v.errMsg = ""
	if keepPrevious {
		v.records = Loading(v.records.data)
	} else {
		v.records = Loading[[]hrapi.AttendanceRecord](nil)
	}
	v.mu.Unlock()

	records, err := v.api.ListAttendance(fetchCtx, sel.ID)

	v.mu.Lock()
	defer v.mu.Unlock()
	cancel()
	if v.closed || gen != v.generation {
		return
	}
	v.cancelRecords = nil
	if err != nil {
		v.errMsg = hrapi.ErrorMessage(err)
		v.records = Errored[[]hrapi.AttendanceRecord](v.errMsg)
		return
	}
	v.records = Ready(records)
}

// Submit marks attendance for the selected employee and then refreshes that
// employee's history. With nothing selected it does nothing. A failed post
// is recorded and returned so the form keeps its values.
func (v *AttendanceView) Submit(ctx context.Context, date string, status hrapi.AttendanceStatus) error {
	v.mu.Lock()
	if v.closed || !v.selection.Valid {
		v.mu.Unlock()
		return nil
	}
	employeeID := v.selection.ID
	v.saving = true
	v.errMsg = ""
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.saving = false
		v.mu.Unlock()
	}()

	_, err := v.api.MarkAttendance(ctx, hrapi.AttendanceCreate{
		EmployeeID: employeeID,
		Date:       date,
		Status:     status,
	})
	if err != nil {
		v.mu.Lock()
		if !v.closed {
			v.errMsg = hrapi.ErrorMessage(err)
		}
		v.mu.Unlock()
		return err
	}

	v.mu.Lock()
	current := v.selection
	v.mu.Unlock()
	if current.Valid {
		v.loadRecords(ctx, current, true)
	}
	return nil
}
