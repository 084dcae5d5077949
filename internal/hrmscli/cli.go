package hrmscli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phillip-england/hrmslite/internal/clientapp"
	"github.com/phillip-england/hrmslite/internal/envutil"
	"github.com/phillip-england/hrmslite/internal/hrapi"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "run":
		return runCommand(args[1:])
	case "check":
		return runCheck(args[1:])
	case "export":
		return runExport(args[1:])
	default:
		return usageError()
	}
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: hrms setup [--api-base-url URL] [--client-addr ADDR] [--env-file .env] [--force]")
	fmt.Fprintln(w, "       hrms run [--env-file .env]")
	fmt.Fprintln(w, "       hrms check [--env-file .env] [--api-base-url URL]")
	fmt.Fprintln(w, "       hrms export --out FILE [--env-file .env] [--api-base-url URL] [--concurrency 4]")
}

func usageError() error {
	return fmt.Errorf("%w: hrms <setup|run|check|export> [...]", ErrUsage)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return nil
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	apiBaseURL := fs.String("api-base-url", "http://localhost:8000", "HRMS backend base URL")
	clientAddr := fs.String("client-addr", ":3000", "address the UI listens on")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg := clientapp.DefaultConfigFromEnv()
	cfg.Addr = strings.TrimSpace(*clientAddr)
	cfg.APIBaseURL = strings.TrimSpace(*apiBaseURL)
	if err := cfg.Validate(); err != nil {
		return err
	}

	values := map[string]string{
		"CLIENT_ADDR":  cfg.Addr,
		"API_BASE_URL": cfg.APIBaseURL,
	}
	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := envutil.LoadDotEnv(*envPath); err != nil {
		return fmt.Errorf("load %s: %w", *envPath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := clientapp.Run(ctx, clientapp.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	apiBaseURL := fs.String("api-base-url", "", "override API_BASE_URL")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	api, err := apiClient(*envPath, *apiBaseURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := api.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend %s unhealthy: %s", api.BaseURL(), hrapi.ErrorMessage(err))
	}
	fmt.Printf("backend %s %s (database %s)\n", api.BaseURL(), status.Status, status.Database)
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	apiBaseURL := fs.String("api-base-url", "", "override API_BASE_URL")
	out := fs.String("out", "", "snapshot file to write (.json.xz)")
	concurrency := fs.Int("concurrency", 4, "parallel attendance fetches")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*out) == "" {
		return fmt.Errorf("%w: --out is required", ErrUsage)
	}
	api, err := apiClient(*envPath, *apiBaseURL)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap, err := WriteSnapshotFile(ctx, api, *out, *concurrency)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d employees)\n", *out, len(snap.Employees))
	return nil
}

func apiClient(envPath, override string) (*hrapi.Client, error) {
	if err := envutil.LoadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}
	cfg := clientapp.DefaultConfigFromEnv()
	if strings.TrimSpace(override) != "" {
		cfg.APIBaseURL = strings.TrimSpace(override)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return hrapi.New(cfg.APIBaseURL, nil), nil
}
