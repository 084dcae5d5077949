package hrapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/phillip-england/hrmslite/internal/hrapi"
	"github.com/phillip-england/hrmslite/internal/hrapi/hrapitest"
)

func TestCreateThenListRoundTrip(t *testing.T) {
	backend := hrapitest.NewBackend()
	defer backend.Close()
	client := backend.Client()

	payload := hrapi.EmployeeCreate{
		EmployeeID: "EMP-001",
		FullName:   "Jane Doe",
		Email:      "jane.doe@company.com",
		Department: "Engineering",
	}
	created, err := client.CreateEmployee(context.Background(), payload)
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected backend-assigned id")
	}

	employees, err := client.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	matches := 0
	for _, emp := range employees {
		if emp.EmployeeID != payload.EmployeeID {
			continue
		}
		matches++
		if emp.FullName != payload.FullName || emp.Email != payload.Email || emp.Department != payload.Department {
			t.Fatalf("fields changed on round trip: %+v", emp)
		}
	}
	if matches != 1 {
		t.Fatalf("expected exactly one EMP-001, got %d", matches)
	}
}

func TestListEmployeesIsStableWithoutMutation(t *testing.T) {
	backend := hrapitest.NewBackend()
	defer backend.Close()
	backend.SeedEmployee(hrapi.EmployeeCreate{EmployeeID: "B-2", FullName: "Bo", Email: "bo@x.io", Department: "Ops"})
	backend.SeedEmployee(hrapi.EmployeeCreate{EmployeeID: "A-1", FullName: "Al", Email: "al@x.io", Department: "HR"})
	client := backend.Client()

	first, err := client.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	second, err := client.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("lists differ: %+v vs %+v", first, second)
	}
	if first[0].EmployeeID != "B-2" {
		t.Fatalf("expected backend order to be preserved, got %+v", first)
	}
}

func TestErrorMessageFromDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hrapitest.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "db unavailable"})
	}))
	defer server.Close()

	_, err := hrapi.New(server.URL, server.Client()).ListEmployees(context.Background())
	var reqErr *hrapi.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Message != "db unavailable" || reqErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected error: %+v", reqErr)
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"message field", "application/json", `{"message":"nope"}`, "nope"},
		{"detail wins over message", "application/json", `{"detail":"first","message":"second"}`, "first"},
		{"validation list", "application/json; charset=utf-8", `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`, "value is not a valid email address"},
		{"no known field", "application/json", `{"error":"x"}`, "Unexpected error"},
		{"broken json", "application/json", `{"detail":`, "Unexpected error"},
		{"not json", "text/plain", `{"detail":"hidden"}`, "Unexpected error"},
		{"empty", "", ``, "Unexpected error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.contentType != "" {
					w.Header().Set("Content-Type", tc.contentType)
				}
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			err := hrapi.New(server.URL, server.Client()).DeleteEmployee(context.Background(), 7)
			if got := hrapi.ErrorMessage(err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequestSendsJSONContentType(t *testing.T) {
	var gotContentType, gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := hrapi.New(server.URL+"/", server.Client()).DeleteEmployee(context.Background(), 42); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotContentType)
	}
	if gotMethod != http.MethodDelete || gotPath != "/employees/42" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestSuccessWithUnparseableBodyIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	employees, err := hrapi.New(server.URL, server.Client()).ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("expected tolerated parse failure, got %v", err)
	}
	if len(employees) != 0 {
		t.Fatalf("expected empty list, got %+v", employees)
	}
}

func TestTransportFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := hrapi.New(url, nil).ListEmployees(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var reqErr *hrapi.RequestError
	if errors.As(err, &reqErr) {
		t.Fatalf("transport failure must not be normalized, got %+v", reqErr)
	}
}

func TestMarkAttendanceAndUnknownStatus(t *testing.T) {
	backend := hrapitest.NewBackend()
	defer backend.Close()
	emp := backend.SeedEmployee(hrapi.EmployeeCreate{EmployeeID: "E-1", FullName: "Ed", Email: "ed@x.io", Department: "Ops"})
	backend.SeedAttendance(emp.ID, "2024-01-01", "Remote")
	client := backend.Client()

	result, err := client.MarkAttendance(context.Background(), hrapi.AttendanceCreate{EmployeeID: emp.ID, Date: "2024-01-02", Status: hrapi.StatusPresent})
	if err != nil {
		t.Fatalf("mark attendance: %v", err)
	}
	if result.AttendanceID == 0 || result.Message == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	_, err = client.MarkAttendance(context.Background(), hrapi.AttendanceCreate{EmployeeID: emp.ID, Date: "2024-01-02", Status: hrapi.StatusAbsent})
	if got := hrapi.ErrorMessage(err); got != "Attendance already marked for this employee on this date" {
		t.Fatalf("unexpected duplicate error %q", got)
	}

	records, err := client.ListAttendance(context.Background(), emp.ID)
	if err != nil {
		t.Fatalf("list attendance: %v", err)
	}
	if len(records) != 2 || records[0].Status != "Remote" || records[0].Status.Known() {
		t.Fatalf("expected unknown status to be kept verbatim, got %+v", records)
	}
}

func TestHealth(t *testing.T) {
	backend := hrapitest.NewBackend()
	defer backend.Close()

	if _, err := backend.Client().Health(context.Background()); err != nil {
		t.Fatalf("expected healthy backend, got %v", err)
	}

	backend.Intercept("GET /health", func(w http.ResponseWriter, r *http.Request) {
		hrapitest.WriteJSON(w, http.StatusOK, map[string]string{"status": "unhealthy", "database": "disconnected", "error": "connection refused"})
	})
	if _, err := backend.Client().Health(context.Background()); hrapi.ErrorMessage(err) != "connection refused" {
		t.Fatalf("expected unhealthy error, got %v", err)
	}
}
