package clientapp

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/phillip-england/hrmslite/internal/hrapi"
	"github.com/phillip-england/hrmslite/internal/middleware"
)

const (
	tabEmployees  = "employees"
	tabAttendance = "attendance"
)

type Config struct {
	Addr         string        `validate:"required"`
	APIBaseURL   string        `validate:"required,url"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	APITimeout   time.Duration `validate:"gt=0"`
}

//go:embed templates/dashboard.html templates/employees.html templates/attendance.html templates/delete_confirm.html assets/app.css
var templatesFS embed.FS

type server struct {
	api           *hrapi.Client
	dashboardTmpl *template.Template
	confirmTmpl   *template.Template
	now           func() time.Time
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:         envOrDefault("CLIENT_ADDR", ":3000"),
		APIBaseURL:   envOrDefault("API_BASE_URL", "http://localhost:8000"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		APITimeout:   8 * time.Second,
	}
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid client config: %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid client config: %w", err)
	}
	return nil
}

func newServer(api *hrapi.Client) *server {
	funcs := template.FuncMap{
		"initials": initials,
	}
	return &server{
		api: api,
		dashboardTmpl: template.Must(template.New("dashboard.html").Funcs(funcs).ParseFS(
			templatesFS,
			"templates/dashboard.html",
			"templates/employees.html",
			"templates/attendance.html",
		)),
		confirmTmpl: template.Must(template.New("delete_confirm.html").Funcs(funcs).ParseFS(templatesFS, "templates/delete_confirm.html")),
		now:         time.Now,
	}
}

// NewHandler builds the full UI handler around an API client.
func NewHandler(api *hrapi.Client) http.Handler {
	s := newServer(api)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard?tab="+tabEmployees, http.StatusFound)
	}).Methods(http.MethodGet)
	router.HandleFunc("/dashboard", s.dashboardPage).Methods(http.MethodGet)
	router.HandleFunc("/employees", s.createEmployee).Methods(http.MethodPost)
	router.HandleFunc("/employees/export.xlsx", s.exportEmployees).Methods(http.MethodGet)
	router.HandleFunc("/employees/import", s.importEmployees).Methods(http.MethodPost)
	router.HandleFunc("/employees/{id:[0-9]+}/delete", s.confirmDeletePage).Methods(http.MethodGet)
	router.HandleFunc("/employees/{id:[0-9]+}/delete", s.deleteEmployee).Methods(http.MethodPost)
	router.HandleFunc("/attendance", s.markAttendance).Methods(http.MethodPost)
	router.HandleFunc("/attendance/{id:[0-9]+}/export.xlsx", s.exportAttendance).Methods(http.MethodGet)
	router.HandleFunc("/attendance/{id:[0-9]+}/import", s.importAttendance).Methods(http.MethodPost)
	router.HandleFunc("/avatars/{initials:[^/.]+}.png", s.avatarImage).Methods(http.MethodGet)
	router.HandleFunc("/assets/app.css", s.appCSSFile).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		router,
		middleware.RequestLog(log.Default()),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
			ContentSecurityPolicy: csp,
			CacheControl:          "no-store",
			ExposeHeaders:         []string{middleware.RequestIDHeader},
		}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	api := hrapi.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(api),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("client listening on http://localhost%s (api %s)", cfg.Addr, api.BaseURL())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{"status": "ok", "backend": "healthy"}
	if _, err := s.api.Health(r.Context()); err != nil {
		payload["backend"] = "unreachable"
		payload["error"] = hrapi.ErrorMessage(err)
	}
	writeJSON(w, http.StatusOK, payload)
}

// logRequestf logs a handler failure tagged with the request's id.
func logRequestf(r *http.Request, format string, args ...any) {
	log.Printf(format+" id=%s", append(args, middleware.RequestID(r.Context()))...)
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
