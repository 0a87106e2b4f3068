// Package store provides in-memory storage for programs and their runs.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Lookup failures. Store errors wrap one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ProgramState represents the state of a stored program.
type ProgramState string

const (
	ProgramActive ProgramState = "ACTIVE"
)

// RunState represents the state of a program run.
type RunState string

const (
	RunActive    RunState = "ACTIVE"
	RunSucceeded RunState = "SUCCEEDED"
	RunFailed    RunState = "FAILED"
	RunStopped   RunState = "STOPPED"
)

// Program represents a stored LOOP program.
type Program struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	State       ProgramState `json:"state"`
	RevisionID  string       `json:"revisionId"`
	CreateTime  time.Time    `json:"createTime"`
	UpdateTime  time.Time    `json:"updateTime"`
	Source      string       `json:"source"`
	Sugar       bool         `json:"sugar"`
	Enhanced    bool         `json:"enhanced"`
}

// Run represents one execution of a stored program.
type Run struct {
	Name              string            `json:"name"`
	State             RunState          `json:"state"`
	Registers         map[string]uint64 `json:"registers,omitempty"`
	Preamble          string            `json:"preamble,omitempty"`
	Result            map[string]any    `json:"result,omitempty"`
	Error             *RunError         `json:"error,omitempty"`
	StopMessage       string            `json:"stopMessage,omitempty"`
	StartTime         time.Time         `json:"startTime"`
	EndTime           time.Time         `json:"endTime,omitempty"`
	ProgramRevisionID string            `json:"programRevisionId"`

	seq int64
}

// RunError describes why a run failed.
type RunError struct {
	Kind    string   `json:"kind,omitempty"`
	Message string   `json:"message"`
	Line    int      `json:"line,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ProgramUpdate lists the fields to change on a program. Nil fields are
// left as they are.
type ProgramUpdate struct {
	Source      *string
	Description *string
	Sugar       *bool
	Enhanced    *bool
}

// Store is a thread-safe in-memory storage for programs and runs. Every
// program and run it returns is a copy.
type Store struct {
	mu       sync.RWMutex
	programs map[string]*Program
	runs     map[string]*Run

	// Counters for generating unique IDs
	runCounter int64
	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		programs: make(map[string]*Program),
		runs:     make(map[string]*Run),
	}
}

// CreateProgram stores a new program under id.
func (s *Store) CreateProgram(id, source, description string, sugar, enhanced bool) (*Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.programs[id]; exists {
		return nil, fmt.Errorf("program '%s' %w", id, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	p := &Program{
		Name:        id,
		Description: description,
		State:       ProgramActive,
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
		Source:      source,
		Sugar:       sugar,
		Enhanced:    enhanced,
	}
	s.programs[id] = p
	return p.clone(), nil
}

// GetProgram retrieves a program by id.
func (s *Store) GetProgram(id string) (*Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[id]
	if !ok {
		return nil, fmt.Errorf("program '%s' %w", id, ErrNotFound)
	}
	return p.clone(), nil
}

// ListPrograms returns every program ordered by id.
func (s *Store) ListPrograms() []*Program {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Program, 0, len(s.programs))
	for _, p := range s.programs {
		result = append(result, p.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateProgram applies upd to a program and bumps its revision.
func (s *Store) UpdateProgram(id string, upd ProgramUpdate) (*Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[id]
	if !ok {
		return nil, fmt.Errorf("program '%s' %w", id, ErrNotFound)
	}

	if upd.Source != nil {
		p.Source = *upd.Source
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Sugar != nil {
		p.Sugar = *upd.Sugar
	}
	if upd.Enhanced != nil {
		p.Enhanced = *upd.Enhanced
	}

	s.revCounter++
	p.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	p.UpdateTime = time.Now()

	return p.clone(), nil
}

// DeleteProgram removes a program together with its runs.
func (s *Store) DeleteProgram(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.programs[id]; !ok {
		return fmt.Errorf("program '%s' %w", id, ErrNotFound)
	}
	delete(s.programs, id)

	prefix := id + "/runs/"
	for name := range s.runs {
		if strings.HasPrefix(name, prefix) {
			delete(s.runs, name)
		}
	}
	return nil
}

// CreateRun creates an ACTIVE run record for a program.
func (s *Store) CreateRun(programID string, registers map[string]uint64, preamble string) (*Run, error) {
	run, _, err := s.StartRun(programID, registers, preamble)
	return run, err
}

// StartRun is CreateRun that also returns the program revision the run was
// created against.
func (s *Store) StartRun(programID string, registers map[string]uint64, preamble string) (*Run, *Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[programID]
	if !ok {
		return nil, nil, fmt.Errorf("program '%s' %w", programID, ErrNotFound)
	}

	s.runCounter++
	run := &Run{
		Name:              fmt.Sprintf("%s/runs/run-%d", programID, s.runCounter),
		State:             RunActive,
		Registers:         copyNumbers(registers),
		Preamble:          preamble,
		StartTime:         time.Now(),
		ProgramRevisionID: p.RevisionID,
		seq:               s.runCounter,
	}
	s.runs[run.Name] = run
	return run.clone(), p.clone(), nil
}

// GetRun retrieves a run by its full name.
func (s *Store) GetRun(name string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[name]
	if !ok {
		return nil, fmt.Errorf("run '%s' %w", name, ErrNotFound)
	}
	return run.clone(), nil
}

// ListRuns returns the runs of a program, oldest first.
func (s *Store) ListRuns(programID string) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Run
	prefix := programID + "/runs/"
	for name, run := range s.runs {
		if strings.HasPrefix(name, prefix) {
			result = append(result, run.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// CompleteRun marks a run as succeeded with its final registers.
func (s *Store) CompleteRun(name string, result map[string]any) error {
	return s.finish(name, func(run *Run) {
		run.State = RunSucceeded
		run.Result = result
	})
}

// StopRun marks a run that executed ERROR.
func (s *Store) StopRun(name, message string, result map[string]any) error {
	return s.finish(name, func(run *Run) {
		run.State = RunStopped
		run.StopMessage = message
		run.Result = result
	})
}

// FailRun marks a run as failed with an error.
func (s *Store) FailRun(name string, err error) error {
	return s.finish(name, func(run *Run) {
		run.State = RunFailed
		run.Error = runError(err)
	})
}

func (s *Store) finish(name string, apply func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[name]
	if !ok {
		return fmt.Errorf("run '%s' %w", name, ErrNotFound)
	}
	if run.State != RunActive {
		return fmt.Errorf("run '%s' is not active (state: %s)", name, run.State)
	}

	apply(run)
	run.EndTime = time.Now()
	return nil
}

// clone returns a copy that callers may read while the store keeps
// changing the original.
func (p *Program) clone() *Program {
	c := *p
	return &c
}

func (r *Run) clone() *Run {
	c := *r
	c.Registers = copyNumbers(r.Registers)
	if r.Result != nil {
		c.Result = make(map[string]any, len(r.Result))
		for k, v := range r.Result {
			c.Result[k] = v
		}
	}
	if r.Error != nil {
		e := *r.Error
		e.Tags = append([]string(nil), r.Error.Tags...)
		c.Error = &e
	}
	return &c
}

func runError(err error) *RunError {
	var le *types.LoopError
	if errors.As(err, &le) {
		return &RunError{
			Kind:    string(le.Kind),
			Message: le.Message,
			Line:    le.Line,
			Tags:    append([]string(nil), le.Tags...),
		}
	}
	return &RunError{Message: err.Error()}
}

func copyNumbers(in map[string]uint64) map[string]uint64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
