package hrmscli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/phillip-england/hrmslite/internal/hrapi"
	"github.com/phillip-england/hrmslite/internal/views"
	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"
)

type Snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	APIBaseURL  string            `json:"api_base_url"`
	Employees   []EmployeeHistory `json:"employees"`
}

type EmployeeHistory struct {
	Employee    hrapi.Employee           `json:"employee"`
	PresentDays int                      `json:"present_days"`
	TotalDays   int                      `json:"total_days"`
	Attendance  []hrapi.AttendanceRecord `json:"attendance"`
}

// BuildSnapshot lists every employee and fetches their attendance with at
// most limit requests in flight. The first failure cancels the rest.
func BuildSnapshot(ctx context.Context, api *hrapi.Client, limit int) (Snapshot, error) {
	employees, err := api.ListEmployees(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list employees: %w", err)
	}
	if limit < 1 {
		limit = 1
	}

	histories := make([]EmployeeHistory, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, emp := range employees {
		g.Go(func() error {
			records, err := api.ListAttendance(gctx, emp.ID)
			if err != nil {
				return fmt.Errorf("attendance for %s: %w", emp.EmployeeID, err)
			}
			if records == nil {
				records = []hrapi.AttendanceRecord{}
			}
			histories[i] = EmployeeHistory{
				Employee:    emp,
				PresentDays: views.PresentDays(records),
				TotalDays:   views.TotalDays(records),
				Attendance:  records,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		GeneratedAt: time.Now().UTC(),
		APIBaseURL:  api.BaseURL(),
		Employees:   histories,
	}, nil
}

func WriteSnapshot(w io.Writer, snap Snapshot) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(xw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = xw.Close()
		return err
	}
	return xw.Close()
}

func ReadSnapshot(r io.Reader) (Snapshot, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.NewDecoder(xr).Decode(&snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// WriteSnapshotFile builds a snapshot and writes it to path. A partial file
// is never left behind.
func WriteSnapshotFile(ctx context.Context, api *hrapi.Client, path string, limit int) (Snapshot, error) {
	snap, err := BuildSnapshot(ctx, api, limit)
	if err != nil {
		return Snapshot{}, err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return Snapshot{}, err
	}
	if err := WriteSnapshot(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Snapshot{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return Snapshot{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Snapshot{}, err
	}
	return snap, nil
}
