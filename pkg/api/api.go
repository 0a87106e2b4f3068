// Package api implements the REST API for running and storing LOOP
// programs.
package api

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/runner"
	"github.com/lemonberrylabs/looplang/pkg/store"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Server is the HTTP API server.
type Server struct {
	app    *fiber.App
	store  *store.Store
	runner *runner.Runner
}

// New creates a new API server. Runs are executed by r against r's store.
func New(r *runner.Runner) *Server {
	srv := &Server{
		store:  r.Store(),
		runner: r,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// One-shot API
	app.Post("/v1/run", srv.run)
	app.Post("/v1/check", srv.check)

	// Programs API
	app.Post("/v1/programs", srv.createProgram)
	app.Get("/v1/programs", srv.listPrograms)
	app.Get("/v1/programs/:program", srv.getProgram)
	app.Patch("/v1/programs/:program", srv.updateProgram)
	app.Delete("/v1/programs/:program", srv.deleteProgram)

	// Runs API
	app.Post("/v1/programs/:program/runs", srv.createRun)
	app.Get("/v1/programs/:program/runs", srv.listRuns)
	app.Get("/v1/programs/:program/runs/:run", srv.getRun)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// ShutdownWithTimeout gracefully shuts down the server, closing connections
// still open after d.
func (s *Server) ShutdownWithTimeout(d time.Duration) error {
	return s.app.ShutdownWithTimeout(d)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- One-shot Handlers ---

type runRequest struct {
	Source    string            `json:"source"`
	Preamble  string            `json:"preamble"`
	Registers map[string]uint64 `json:"registers"`
	Sugar     bool              `json:"sugar"`
	Enhanced  bool              `json:"enhanced"`
}

func (s *Server) run(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	out, err := s.runner.Run(c.UserContext(), runner.Request{
		Source:    req.Source,
		Preamble:  req.Preamble,
		Registers: req.Registers,
		Dialect:   parser.Dialect{Sugar: req.Sugar, Enhanced: req.Enhanced},
	})
	if err != nil {
		return programError(c, err)
	}

	result := fiber.Map{
		"registers": out.Registers.Export(),
		"stopped":   out.Stopped,
	}
	if out.Stopped {
		result["message"] = out.Message
	}
	return c.JSON(result)
}

func (s *Server) check(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if err := s.runner.Check(req.Source, parser.Dialect{Sugar: req.Sugar, Enhanced: req.Enhanced}); err != nil {
		return programError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// --- Program Handlers ---

type programRequest struct {
	Source      *string `json:"source"`
	Description *string `json:"description"`
	Sugar       *bool   `json:"sugar"`
	Enhanced    *bool   `json:"enhanced"`
}

func (s *Server) createProgram(c *fiber.Ctx) error {
	programID := c.Query("programId")
	if programID == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "programId query parameter is required")
	}
	if !validProgramID(programID) {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid programId %q", programID))
	}

	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == nil || *req.Source == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "source is required")
	}

	sugar, enhanced := deref(req.Sugar), deref(req.Enhanced)
	if err := s.runner.Check(*req.Source, parser.Dialect{Sugar: sugar, Enhanced: enhanced}); err != nil {
		return programError(c, err)
	}

	var description string
	if req.Description != nil {
		description = *req.Description
	}
	p, err := s.store.CreateProgram(programID, *req.Source, description, sugar, enhanced)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(200).JSON(programToJSON(p))
}

func (s *Server) getProgram(c *fiber.Ctx) error {
	p, err := s.store.GetProgram(c.Params("program"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) listPrograms(c *fiber.Ctx) error {
	programs := s.store.ListPrograms()

	items := make([]fiber.Map, len(programs))
	for i, p := range programs {
		items[i] = programToJSON(p)
	}

	return c.JSON(fiber.Map{
		"programs": items,
	})
}

func (s *Server) updateProgram(c *fiber.Ctx) error {
	id := c.Params("program")

	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	current, err := s.store.GetProgram(id)
	if err != nil {
		return storeError(c, err)
	}

	// Validate the program as it will look after the update.
	source := current.Source
	if req.Source != nil {
		source = *req.Source
	}
	d := parser.Dialect{Sugar: current.Sugar, Enhanced: current.Enhanced}
	if req.Sugar != nil {
		d.Sugar = *req.Sugar
	}
	if req.Enhanced != nil {
		d.Enhanced = *req.Enhanced
	}
	if source == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "source must not be empty")
	}
	if err := s.runner.Check(source, d); err != nil {
		return programError(c, err)
	}

	p, err := s.store.UpdateProgram(id, store.ProgramUpdate{
		Source:      req.Source,
		Description: req.Description,
		Sugar:       req.Sugar,
		Enhanced:    req.Enhanced,
	})
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(programToJSON(p))
}

func (s *Server) deleteProgram(c *fiber.Ctx) error {
	id := c.Params("program")
	if err := s.store.DeleteProgram(id); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"name": id,
		"done": true,
	})
}

// --- Run Handlers ---

type createRunRequest struct {
	Registers map[string]uint64 `json:"registers"`
	Preamble  string            `json:"preamble"`
}

func (s *Server) createRun(c *fiber.Ctx) error {
	var req createRunRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	run, err := s.runner.RunProgram(c.UserContext(), c.Params("program"), req.Registers, req.Preamble)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

func (s *Server) getRun(c *fiber.Ctx) error {
	name := c.Params("program") + "/runs/" + c.Params("run")
	run, err := s.store.GetRun(name)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(runToJSON(run))
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	id := c.Params("program")
	if _, err := s.store.GetProgram(id); err != nil {
		return storeError(c, err)
	}

	runs := s.store.ListRuns(id)
	items := make([]fiber.Map, len(runs))
	for i, run := range runs {
		items[i] = runToJSON(run)
	}
	return c.JSON(fiber.Map{
		"runs": items,
	})
}

// --- Directory Loading ---

var programIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func validProgramID(id string) bool {
	return programIDPattern.MatchString(id) && len(id) <= 128
}

// LoadDir deploys every .loop file in dir as a program checked under d.
// The lower-cased file name without extension becomes the program ID.
// Files that cannot be read, checked or deployed are skipped with a warning.
func (s *Server) LoadDir(dir string, d parser.Dialect) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading programs directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".loop" {
			continue
		}

		base := strings.TrimSuffix(name, ext)
		programID := strings.ToLower(base)

		if programID != base {
			log.Printf("Warning: lowercased program ID %q (from file %q)", programID, name)
		}

		if !validProgramID(programID) {
			log.Printf("Warning: skipping file %q: invalid program ID %q", name, programID)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not read %q: %v", name, err)
			continue
		}

		if err := s.runner.Check(string(data), d); err != nil {
			log.Printf("Warning: could not check %q: %v", name, err)
			continue
		}

		if _, err := s.store.CreateProgram(programID, string(data), "", d.Sugar, d.Enhanced); err != nil {
			log.Printf("Warning: could not deploy %q: %v", name, err)
			continue
		}

		loaded++
		log.Printf("Loaded program %q from %s", programID, name)
	}

	log.Printf("Loaded %d program(s) from %s", loaded, dir)
	return loaded, nil
}

// --- Helpers ---

func apiError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// programError reports a compile or run failure.
func programError(c *fiber.Ctx, err error) error {
	var le *types.LoopError
	if !errors.As(err, &le) {
		return apiError(c, 500, "INTERNAL", err.Error())
	}

	code, status := 400, "INVALID_ARGUMENT"
	switch {
	case runner.IsTimeout(err):
		code, status = 504, "DEADLINE_EXCEEDED"
	case le.Kind == types.KindRuntime:
		status = "FAILED_PRECONDITION"
	}

	body := fiber.Map{
		"code":    code,
		"message": err.Error(),
		"status":  status,
		"kind":    le.Kind,
	}
	if le.Line > 0 {
		body["line"] = le.Line
	}
	if len(le.Tags) > 0 {
		body["tags"] = le.Tags
	}
	return c.Status(code).JSON(fiber.Map{"error": body})
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apiError(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return apiError(c, 409, "ALREADY_EXISTS", err.Error())
	default:
		return apiError(c, 500, "INTERNAL", err.Error())
	}
}

func deref(b *bool) bool {
	return b != nil && *b
}

func programToJSON(p *store.Program) fiber.Map {
	return fiber.Map{
		"name":        p.Name,
		"description": p.Description,
		"state":       p.State,
		"revisionId":  p.RevisionID,
		"createTime":  p.CreateTime.Format(time.RFC3339),
		"updateTime":  p.UpdateTime.Format(time.RFC3339),
		"source":      p.Source,
		"sugar":       p.Sugar,
		"enhanced":    p.Enhanced,
	}
}

func runToJSON(run *store.Run) fiber.Map {
	result := fiber.Map{
		"name":              run.Name,
		"state":             run.State,
		"startTime":         run.StartTime.Format(time.RFC3339),
		"programRevisionId": run.ProgramRevisionID,
	}

	if len(run.Registers) > 0 {
		result["registers"] = run.Registers
	}
	if run.Preamble != "" {
		result["preamble"] = run.Preamble
	}
	if run.Result != nil {
		result["result"] = run.Result
	}
	if run.Error != nil {
		result["error"] = run.Error
	}
	if run.StopMessage != "" {
		result["stopMessage"] = run.StopMessage
	}
	if !run.EndTime.IsZero() {
		result["endTime"] = run.EndTime.Format(time.RFC3339)
	}

	return result
}
