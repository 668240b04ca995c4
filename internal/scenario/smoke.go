package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/notesprobe/internal/datagen"
	"github.com/notesprobe/pkg/apiclient"
	"github.com/notesprobe/pkg/notes"
)

const healthyMessage = "Notes API is Running"

// SmokeOptions tunes the smoke suite.
type SmokeOptions struct {
	// MaxLatency is the slowest acceptable health-check response.
	MaxLatency time.Duration
	// ShortTimeout must be too short for the health check to complete.
	ShortTimeout time.Duration
	// EmailDomain is used for generated accounts.
	EmailDomain string
}

// DefaultSmokeOptions mirrors the limits of the API's integration suite.
func DefaultSmokeOptions() SmokeOptions {
	return SmokeOptions{
		MaxLatency:   time.Second,
		ShortTimeout: time.Millisecond,
		EmailDomain:  datagen.DefaultDomain,
	}
}

// Check is one named smoke check. Run returns the observed status, a short
// detail for the report, and a non-nil error when the check failed.
type Check struct {
	Name string
	Run  func(ctx context.Context, svc *notes.Service) (int, string, error)
}

// SmokeChecks returns the suite in execution order.
func SmokeChecks(opts SmokeOptions) []Check {
	if opts.MaxLatency <= 0 {
		opts.MaxLatency = time.Second
	}
	if opts.ShortTimeout <= 0 {
		opts.ShortTimeout = time.Millisecond
	}

	checks := []Check{
		{"health: success", checkHealth(nil, 0)},
		{"health: response time", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			res, err := svc.Health(ctx)
			if err != nil {
				return apiclient.StatusCode(err), "", err
			}
			detail := res.Elapsed.Round(time.Millisecond).String()
			if res.Elapsed >= opts.MaxLatency {
				return res.StatusCode, detail, fmt.Errorf("response took %s, limit %s", res.Elapsed, opts.MaxLatency)
			}
			return res.StatusCode, detail, nil
		}},
	}

	headerCases := []struct {
		name    string
		headers map[string]string
	}{
		{"happy path", map[string]string{"Accept": "application/json"}},
		{"xml accept header", map[string]string{"Accept": "application/xml"}},
		{"any accept header", map[string]string{"Accept": "*/*"}},
		{"no headers", nil},
		{"additional headers", map[string]string{"Accept": "application/json", "x-custom-header": "test"}},
	}
	for _, hc := range headerCases {
		checks = append(checks, Check{"health headers: " + hc.name, checkHealth(hc.headers, 0)})
	}

	checks = append(checks,
		Check{"health timeout: short", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			_, err := svc.Health(ctx, apiclient.WithRequestTimeout(opts.ShortTimeout))
			if err == nil {
				return http.StatusOK, "", fmt.Errorf("expected a timeout with %s, request succeeded", opts.ShortTimeout)
			}
			apiErr, ok := apiclient.AsError(err)
			if !ok || !apiErr.Timeout() {
				return apiclient.StatusCode(err), "", fmt.Errorf("expected a timeout error, got: %w", err)
			}
			return 0, apiErr.Message, nil
		}},
		Check{"health timeout: normal", checkHealth(nil, 500*time.Millisecond)},
		Check{"health timeout: extended", checkHealth(nil, time.Second)},
	)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		checks = append(checks, Check{"health method: " + method, checkMethodRejected(method)})
	}

	checks = append(checks,
		Check{"register: valid", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			user := datagen.NewUser()
			user.Email = datagen.RandomEmail(opts.EmailDomain)
			return expectRegister(ctx, svc, user, http.StatusCreated, "User account created successfully")
		}},
		Check{"register: short password", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			user := notes.RegisterRequest{Name: "test_user", Email: "a@a.com", Password: "short"}
			return expectRegister(ctx, svc, user, http.StatusBadRequest, "Password must be between 6 and 30 characters")
		}},
		Check{"register: invalid email", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			user := notes.RegisterRequest{Name: "test_user", Email: "invalid-email", Password: "ValidPass123!"}
			return expectRegister(ctx, svc, user, http.StatusBadRequest, "A valid email address is required")
		}},
		Check{"register: duplicate", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			user := datagen.NewUser()
			user.Email = datagen.RandomEmail(opts.EmailDomain)
			if status, detail, err := expectRegister(ctx, svc, user, http.StatusCreated, ""); err != nil {
				return status, detail, fmt.Errorf("first registration: %w", err)
			}
			return expectRegister(ctx, svc, user, http.StatusConflict, "An account already exists with the same email address")
		}},
		Check{"security: profile without token", func(ctx context.Context, svc *notes.Service) (int, string, error) {
			client := svc.Client()
			saved := client.Token
			client.Token = ""
			defer func() { client.Token = saved }()

			res, err := svc.Profile(ctx)
			if err == nil {
				return res.StatusCode, "", fmt.Errorf("expected 401, got %d", res.StatusCode)
			}
			status := apiclient.StatusCode(err)
			if status != http.StatusUnauthorized {
				return status, "", fmt.Errorf("expected 401: %w", err)
			}
			return status, err.Error(), nil
		}},
	)

	return checks
}

// RunSmoke runs every check against svc and never stops early. The error
// wraps ErrFailed when at least one check failed.
func RunSmoke(ctx context.Context, svc *notes.Service, opts SmokeOptions) (*Report, error) {
	report := newReport("smoke", svc.Client().BaseURL())

	for _, check := range SmokeChecks(opts) {
		if err := ctx.Err(); err != nil {
			report.finish()
			return report, fmt.Errorf("smoke suite interrupted: %w", err)
		}
		start := time.Now()
		status, detail, err := check.Run(ctx, svc)
		s := Step{
			Name:       check.Name,
			Passed:     err == nil,
			StatusCode: status,
			Elapsed:    time.Since(start),
			Detail:     detail,
		}
		if err != nil {
			s.Error = err.Error()
		}
		report.add(s)
	}

	report.finish()
	if n := report.Failures(); n > 0 {
		return report, fmt.Errorf("%w: %d of %d checks failed", ErrFailed, n, len(report.Steps))
	}
	return report, nil
}

func checkHealth(headers map[string]string, timeout time.Duration) func(context.Context, *notes.Service) (int, string, error) {
	return func(ctx context.Context, svc *notes.Service) (int, string, error) {
		opts := []apiclient.RequestOption{apiclient.WithRequestTimeout(timeout)}
		if headers != nil {
			opts = append(opts, apiclient.WithHeaders(headers))
		}
		res, err := svc.Health(ctx, opts...)
		if err != nil {
			return apiclient.StatusCode(err), "", err
		}
		if res.StatusCode != http.StatusOK || !res.Success || res.Message != healthyMessage {
			return res.StatusCode, res.Message, fmt.Errorf("unexpected health response: %d %q", res.StatusCode, res.Message)
		}
		return res.StatusCode, res.Message, nil
	}
}

func checkMethodRejected(method string) func(context.Context, *notes.Service) (int, string, error) {
	return func(ctx context.Context, svc *notes.Service) (int, string, error) {
		res, err := svc.Client().Request(ctx, method, "/health-check")
		if err == nil {
			return res.StatusCode, "", fmt.Errorf("expected 405 or 501, got %d", res.StatusCode)
		}
		status := apiclient.StatusCode(err)
		if status != http.StatusMethodNotAllowed && status != http.StatusNotImplemented {
			return status, "", fmt.Errorf("expected 405 or 501: %w", err)
		}
		return status, "rejected", nil
	}
}

// expectRegister passes when registration answers want and, if msg is set,
// carries that message.
func expectRegister(ctx context.Context, svc *notes.Service, user notes.RegisterRequest, want int, msg string) (int, string, error) {
	res, err := svc.Register(ctx, user)
	if err == nil {
		if res.StatusCode != want {
			return res.StatusCode, res.Message, fmt.Errorf("expected %d, got %d", want, res.StatusCode)
		}
		if msg != "" && res.Message != msg {
			return res.StatusCode, res.Message, fmt.Errorf("expected message %q, got %q", msg, res.Message)
		}
		return res.StatusCode, res.Message, nil
	}

	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return 0, "", err
	}
	if apiErr.StatusCode != want {
		return apiErr.StatusCode, apiErr.Message, fmt.Errorf("expected %d: %w", want, err)
	}
	if msg != "" && apiErr.Message != msg {
		return apiErr.StatusCode, apiErr.Message, fmt.Errorf("expected message %q, got %q", msg, apiErr.Message)
	}
	return apiErr.StatusCode, apiErr.Message, nil
}
