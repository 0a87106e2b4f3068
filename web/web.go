// Package web provides the embedded web UI for browsing stored programs and
// their runs.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/looplang/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store) *Handler {
	return &Handler{
		store: s,
		funcMap: template.FuncMap{
			"runID":      runID,
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"duration":   duration,
			"stateClass": stateClass,
			"stateIcon":  stateIcon,
			"truncate":   truncate,
			"countLines": countLines,
			"dialect":    dialect,
			"sortedRegs": sortedRegs,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed with the layout alone so that define blocks of
	// different pages never collide.
	tmpl, err := template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	if err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pageData{NavActive: navActive, Data: data}); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/programs/:program", h.programDetail)
	app.Get("/ui/programs/:program/runs/:run", h.runDetail)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Programs     []*programView
	RecentRuns   []*store.Run
	SucceededCnt int
	StoppedCnt   int
	FailedCnt    int
}

type programView struct {
	*store.Program
	RunCount int
}

type programDetailContent struct {
	Program *store.Program
	Runs    []*store.Run
}

type runDetailContent struct {
	Run       *store.Run
	ProgramID string
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	var content dashboardContent
	var all []*store.Run

	for _, p := range h.store.ListPrograms() {
		runs := h.store.ListRuns(p.Name)
		content.Programs = append(content.Programs, &programView{Program: p, RunCount: len(runs)})
		for _, r := range runs {
			switch r.State {
			case store.RunSucceeded:
				content.SucceededCnt++
			case store.RunStopped:
				content.StoppedCnt++
			case store.RunFailed:
				content.FailedCnt++
			}
		}
		all = append(all, runs...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartTime.After(all[j].StartTime)
	})
	if len(all) > 10 {
		all = all[:10]
	}
	content.RecentRuns = all

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) programDetail(c *fiber.Ctx) error {
	id := c.Params("program")
	p, err := h.store.GetProgram(id)
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Program '%s' not found", id),
		})
	}

	runs := h.store.ListRuns(id)
	// newest first
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}

	return h.render(c, "program_detail.html", "dashboard", programDetailContent{
		Program: p,
		Runs:    runs,
	})
}

func (h *Handler) runDetail(c *fiber.Ctx) error {
	id := c.Params("program")
	name := id + "/runs/" + c.Params("run")

	run, err := h.store.GetRun(name)
	if err != nil {
		return h.render(c, "not_found.html", "", notFoundContent{
			Message: fmt.Sprintf("Run '%s' not found", name),
		})
	}

	return h.render(c, "run_detail.html", "dashboard", runDetailContent{
		Run:       run,
		ProgramID: id,
	})
}

// --- Template Helpers ---

func runID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func dialect(sugar, enhanced bool) string {
	switch {
	case sugar && enhanced:
		return "sugar, enhanced"
	case sugar:
		return "sugar"
	case enhanced:
		return "enhanced"
	default:
		return "core"
	}
}

type regEntry struct {
	Name  string
	Value any
}

// sortedRegs orders a register map by name for display.
func sortedRegs(m any) []regEntry {
	var out []regEntry
	switch regs := m.(type) {
	case map[string]uint64:
		for k, v := range regs {
			out = append(out, regEntry{k, v})
		}
	case map[string]any:
		for k, v := range regs {
			out = append(out, regEntry{k, v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	if d < time.Minute {
		return "just now"
	}

	n, unit := int(d.Minutes()), "minute"
	if d >= 24*time.Hour {
		n, unit = int(d.Hours()/24), "day"
	} else if d >= time.Hour {
		n, unit = int(d.Hours()), "hour"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return fmt.Sprintf("%s (running)", formatDuration(time.Since(start)))
	}
	return formatDuration(end.Sub(start))
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func stateClass(state store.RunState) string {
	switch state {
	case store.RunActive:
		return "state-active"
	case store.RunSucceeded:
		return "state-succeeded"
	case store.RunStopped:
		return "state-stopped"
	case store.RunFailed:
		return "state-failed"
	default:
		return ""
	}
}

func stateIcon(state store.RunState) template.HTML {
	switch state {
	case store.RunActive:
		return "&#9654;"
	case store.RunSucceeded:
		return "&#10003;"
	case store.RunStopped:
		return "&#9632;"
	case store.RunFailed:
		return "&#10007;"
	default:
		return "&#8226;"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
