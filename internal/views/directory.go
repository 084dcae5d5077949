package views

import (
	"context"
	"sync"

	"github.com/phillip-england/hrmslite/internal/hrapi"
)

const DeleteEmployeePrompt = "Delete this employee? This cannot be undone."

type EmployeeAPI interface {
	ListEmployees(ctx context.Context) ([]hrapi.Employee, error)
	CreateEmployee(ctx context.Context, payload hrapi.EmployeeCreate) (hrapi.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

type DirectoryState struct {
	Employees Resource[[]hrapi.Employee]
	Saving    bool
	Error     string
}

// DirectoryView owns the employee list shown by the directory tab.
type DirectoryView struct {
	api EmployeeAPI

	mu        sync.Mutex
	employees Resource[[]hrapi.Employee]
	saving    bool
	errMsg    string
	closed    bool
}

func NewDirectoryView(api EmployeeAPI) *DirectoryView {
	return &DirectoryView{api: api, employees: Idle[[]hrapi.Employee]()}
}

func (v *DirectoryView) State() DirectoryState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := DirectoryState{Employees: v.employees, Saving: v.saving, Error: v.errMsg}
	state.Employees.data = append([]hrapi.Employee(nil), v.employees.data...)
	return state
}

// Close marks the view as torn down. Results that arrive afterwards are dropped.
func (v *DirectoryView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *DirectoryView) Mount(ctx context.Context) {
	v.load(ctx)
}

func (v *DirectoryView) load(ctx context.Context) {
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
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if err != nil {
		v.errMsg = hrapi.ErrorMessage(err)
		v.employees = Errored[[]hrapi.Employee](v.errMsg)
		return
	}
	v.employees = Ready(employees)
}

// Create posts a new employee and reloads the whole list. The error is
// returned after being recorded so the caller can keep its form input.
func (v *DirectoryView) Create(ctx context.Context, payload hrapi.EmployeeCreate) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.saving = true
	v.errMsg = ""
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.saving = false
		v.mu.Unlock()
	}()

	if _, err := v.api.CreateEmployee(ctx, payload); err != nil {
		v.mu.Lock()
		if !v.closed {
			v.errMsg = hrapi.ErrorMessage(err)
		}
		v.mu.Unlock()
		return err
	}
	v.load(ctx)
	return nil
}

// Delete removes an employee after confirmation. On success the employee is
// dropped from the local list without refetching; on failure the list is
// left as it was.
func (v *DirectoryView) Delete(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(DeleteEmployeePrompt) {
		return false, nil
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false, nil
	}
	// A failed list load stays visible; the local list is not the backend's.
	if !v.employees.IsErrored() {
		v.errMsg = ""
	}
	v.mu.Unlock()

	if err := v.api.DeleteEmployee(ctx, id); err != nil {
		v.mu.Lock()
		if !v.closed {
			v.errMsg = hrapi.ErrorMessage(err)
		}
		v.mu.Unlock()
		return false, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return true, nil
	}
	kept := make([]hrapi.Employee, 0, len(v.employees.data))
	for _, emp := range v.employees.data {
		if emp.ID != id {
			kept = append(kept, emp)
		}
	}
	v.employees.data = kept
	return true, nil
}
