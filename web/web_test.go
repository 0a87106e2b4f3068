package web

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/looplang/pkg/store"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(s)
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) string {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	return string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	html := get(t, app, "/ui")
	for _, want := range []string{"Dashboard", "looplang", "No programs stored yet."} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestDashboardWithData(t *testing.T) {
	app, s := setupTestApp(t)

	if _, err := s.CreateProgram("double", "r = n + n", "Doubles n", true, false); err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	run, err := s.CreateRun("double", map[string]uint64{"n": 2}, "")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.CompleteRun(run.Name, map[string]any{"n": uint64(2), "r": uint64(4)}); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	html := get(t, app, "/ui")
	for _, want := range []string{"double", "Doubles n", "1 succeeded", "SUCCEEDED"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestProgramDetail(t *testing.T) {
	app, s := setupTestApp(t)

	source := "LOOP n\n  r = r + 1\nEND"
	if _, err := s.CreateProgram("count", source, "Counts to n", false, false); err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if _, err := s.CreateRun("count", nil, ""); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	html := get(t, app, "/ui/programs/count")
	for _, want := range []string{"count", "Counts to n", "LOOP n", "core", "run-1", "ACTIVE"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestRunDetail(t *testing.T) {
	app, s := setupTestApp(t)

	if _, err := s.CreateProgram("guard", "ERROR \"no\"", "", false, true); err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	run, err := s.CreateRun("guard", map[string]uint64{"x": 7}, "y = x")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.StopRun(run.Name, "no", map[string]any{"x": uint64(7)}); err != nil {
		t.Fatalf("StopRun: %v", err)
	}

	html := get(t, app, "/ui/programs/guard/runs/"+runID(run.Name))
	for _, want := range []string{"STOPPED", "y = x", "Input registers", "Result", "state-stopped"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	for _, path := range []string{"/ui/programs/nonexistent", "/ui/programs/nonexistent/runs/run-1"} {
		if html := get(t, app, path); !strings.Contains(html, "Not Found") {
			t.Errorf("%s: expected not found message", path)
		}
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Fatalf("expected 302 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Fatalf("expected redirect to /ui, got %s", loc)
	}
}

func TestDialect(t *testing.T) {
	tests := []struct {
		sugar, enhanced bool
		want            string
	}{
		{false, false, "core"},
		{true, false, "sugar"},
		{false, true, "enhanced"},
		{true, true, "sugar, enhanced"},
	}
	for _, tt := range tests {
		if got := dialect(tt.sugar, tt.enhanced); got != tt.want {
			t.Errorf("dialect(%v, %v) = %q, want %q", tt.sugar, tt.enhanced, got, tt.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{90 * time.Second, "1 minute ago"},
		{2*time.Hour + time.Minute, "2 hours ago"},
		{50 * time.Hour, "2 days ago"},
	}
	for _, tt := range tests {
		if got := timeAgo(time.Now().Add(-tt.ago)); got != tt.want {
			t.Errorf("timeAgo(-%s) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := timeAgo(time.Time{}); got != "-" {
		t.Errorf("timeAgo(zero) = %q", got)
	}
}
