package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lemonberrylabs/looplang/pkg/types"
)

func TestProgramLifecycle(t *testing.T) {
	s := New()

	p, err := s.CreateProgram("adder", "x = x + 1", "adds one", false, false)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if p.State != ProgramActive || p.RevisionID == "" {
		t.Fatalf("unexpected program %+v", p)
	}

	if _, err := s.CreateProgram("adder", "x = 0", "", false, false); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	src := "x = x * 2"
	sugar := true
	updated, err := s.UpdateProgram("adder", ProgramUpdate{Source: &src, Sugar: &sugar})
	if err != nil {
		t.Fatalf("UpdateProgram: %v", err)
	}
	if updated.Source != src || !updated.Sugar || updated.Description != "adds one" {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.RevisionID == "000001-000" {
		t.Error("expected a new revision id")
	}

	if err := s.DeleteProgram("adder"); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	if _, err := s.GetProgram("adder"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteProgram("adder"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListProgramsSorted(t *testing.T) {
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		if _, err := s.CreateProgram(id, "x = 0", "", false, false); err != nil {
			t.Fatal(err)
		}
	}
	list := s.ListPrograms()
	if len(list) != 3 || list[0].Name != "a" || list[2].Name != "c" {
		t.Errorf("unexpected order %v", list)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := New()
	if _, err := s.CreateProgram("p", "x = x + 1", "", false, false); err != nil {
		t.Fatal(err)
	}

	if _, err := s.CreateRun("missing", nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var names []string
	for i := 0; i < 11; i++ {
		run, err := s.CreateRun("p", map[string]uint64{"x": uint64(i)}, "")
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, run.Name)
	}

	if err := s.CompleteRun(names[0], map[string]any{"x": uint64(1)}); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}
	if err := s.StopRun(names[1], "bad input", nil); err != nil {
		t.Fatalf("StopRun: %v", err)
	}
	if err := s.FailRun(names[2], types.NewResolveError(3, "call to undefined function f")); err != nil {
		t.Fatalf("FailRun: %v", err)
	}
	if err := s.FailRun(names[3], fmt.Errorf("boom")); err != nil {
		t.Fatalf("FailRun: %v", err)
	}
	if err := s.CompleteRun(names[0], nil); err == nil {
		t.Error("expected finishing a finished run to fail")
	}

	done, _ := s.GetRun(names[0])
	if done.State != RunSucceeded || done.EndTime.IsZero() || done.Result["x"] != uint64(1) {
		t.Errorf("unexpected succeeded run %+v", done)
	}
	stopped, _ := s.GetRun(names[1])
	if stopped.State != RunStopped || stopped.StopMessage != "bad input" {
		t.Errorf("unexpected stopped run %+v", stopped)
	}
	failed, _ := s.GetRun(names[2])
	if failed.State != RunFailed || failed.Error.Kind != "ResolveError" || failed.Error.Line != 3 {
		t.Errorf("unexpected failed run error %+v", failed.Error)
	}
	plain, _ := s.GetRun(names[3])
	if plain.Error.Kind != "" || plain.Error.Message != "boom" {
		t.Errorf("unexpected plain error %+v", plain.Error)
	}

	runs := s.ListRuns("p")
	if len(runs) != 11 {
		t.Fatalf("expected 11 runs, got %d", len(runs))
	}
	for i, run := range runs {
		if run.Name != names[i] {
			t.Errorf("run %d: got %s, want %s", i, run.Name, names[i])
		}
	}

	if err := s.DeleteProgram("p"); err != nil {
		t.Fatal(err)
	}
	if len(s.ListRuns("p")) != 0 {
		t.Error("expected runs to be deleted with their program")
	}
}

func TestCreateRunCopiesRegisters(t *testing.T) {
	s := New()
	if _, err := s.CreateProgram("p", "x = 0", "", false, false); err != nil {
		t.Fatal(err)
	}
	regs := map[string]uint64{"n": 5}
	run, err := s.CreateRun("p", regs, "")
	if err != nil {
		t.Fatal(err)
	}
	regs["n"] = 9
	if run.Registers["n"] != 5 {
		t.Errorf("expected stored registers to be a copy, got %v", run.Registers)
	}
}

func TestReturnedValuesAreSnapshots(t *testing.T) {
	s := New()
	if _, err := s.CreateProgram("p", "x = 0", "", false, false); err != nil {
		t.Fatal(err)
	}

	before, _ := s.GetProgram("p")
	src := "x = x + 1"
	if _, err := s.UpdateProgram("p", ProgramUpdate{Source: &src}); err != nil {
		t.Fatal(err)
	}
	if before.Source != "x = 0" {
		t.Errorf("earlier program changed to %q", before.Source)
	}

	run, err := s.CreateRun("p", map[string]uint64{"x": 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	active, _ := s.GetRun(run.Name)
	listed := s.ListRuns("p")[0]
	if err := s.CompleteRun(run.Name, map[string]any{"x": uint64(2)}); err != nil {
		t.Fatal(err)
	}
	if active.State != RunActive || listed.State != RunActive || active.Result != nil {
		t.Errorf("earlier run changed: %+v", active)
	}

	done, _ := s.GetRun(run.Name)
	done.Result["x"] = uint64(99)
	done.Registers["x"] = 99
	again, _ := s.GetRun(run.Name)
	if again.Result["x"] != uint64(2) || again.Registers["x"] != 1 {
		t.Errorf("stored run changed through a returned copy: %+v", again)
	}
}

func TestStartRunReturnsRevision(t *testing.T) {
	s := New()
	if _, err := s.CreateProgram("p", "x = 0", "", true, false); err != nil {
		t.Fatal(err)
	}
	run, p, err := s.StartRun("p", nil, "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if p.Source != "x = 0" || !p.Sugar || run.ProgramRevisionID != p.RevisionID {
		t.Errorf("unexpected snapshot %+v for run %+v", p, run)
	}
	if _, _, err := s.StartRun("missing", nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
