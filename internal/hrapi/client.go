package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const fallbackErrorMessage = "Unexpected error"

// RequestError is returned for every non-2xx response. Message is what the
// UI shows.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ErrorMessage returns the display string for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListEmployees(ctx context.Context) ([]Employee, error) {
	var employees []Employee
	if err := c.request(ctx, http.MethodGet, "/employees/", nil, &employees); err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []Employee{}
	}
	return employees, nil
}

func (c *Client) CreateEmployee(ctx context.Context, payload EmployeeCreate) (Employee, error) {
	var created Employee
	if err := c.request(ctx, http.MethodPost, "/employees/", payload, &created); err != nil {
		return Employee{}, err
	}
	return created, nil
}

func (c *Client) DeleteEmployee(ctx context.Context, id int64) error {
	return c.request(ctx, http.MethodDelete, "/employees/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ListAttendance(ctx context.Context, employeeID int64) ([]AttendanceRecord, error) {
	var records []AttendanceRecord
	if err := c.request(ctx, http.MethodGet, "/attendance/"+strconv.FormatInt(employeeID, 10), nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []AttendanceRecord{}
	}
	return records, nil
}

func (c *Client) MarkAttendance(ctx context.Context, payload AttendanceCreate) (MarkAttendanceResult, error) {
	var result MarkAttendanceResult
	if err := c.request(ctx, http.MethodPost, "/attendance/", payload, &result); err != nil {
		return MarkAttendanceResult{}, err
	}
	return result, nil
}

// Health probes the backend's /health endpoint. A 2xx reply whose status is
// not "healthy" is reported as an error carrying the backend's reason.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	if err := c.request(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return HealthStatus{}, err
	}
	if status.Status != "" && status.Status != "healthy" {
		msg := strings.TrimSpace(status.Error)
		if msg == "" {
			msg = "backend reported " + status.Status
		}
		return status, &RequestError{StatusCode: http.StatusOK, Message: msg}
	}
	return status, nil
}

func (c *Client) request(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data := readJSONBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{StatusCode: resp.StatusCode, Message: errorMessageFromBody(data)}
	}
	if out == nil || data == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// readJSONBody returns the raw body when the response declares JSON and the
// body parses. Anything else is treated as no body.
func readJSONBody(resp *http.Response) json.RawMessage {
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return raw
}

func errorMessageFromBody(data json.RawMessage) string {
	if data == nil {
		return fallbackErrorMessage
	}
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fallbackErrorMessage
	}
	if msg := detailMessage(payload.Detail); msg != "" {
		return msg
	}
	if msg := stringField(payload.Message); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}

// detailMessage accepts either a plain string or a list of validation
// entries of the form [{"loc": [...], "msg": "..."}].
func detailMessage(raw json.RawMessage) string {
	if msg := stringField(raw); msg != "" {
		return msg
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if m := strings.TrimSpace(entry.Msg); m != "" {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
