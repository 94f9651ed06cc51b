package exam

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/examguard/internal/violation"
)

func TestDefaultBankIsValid(t *testing.T) {
	b := DefaultBank()
	if err := b.Validate(); err != nil {
		t.Fatalf("default bank invalid: %v", err)
	}
	if len(b.Questions) != 3 || len(b.Rules) != 5 {
		t.Errorf("unexpected default bank: %d questions, %d rules", len(b.Questions), len(b.Rules))
	}
}

func TestAnswerAutoAdvances(t *testing.T) {
	e := New(DefaultBank())

	if err := e.Answer(2); err != nil {
		t.Fatal(err)
	}
	if i, _ := e.Current(); i != 1 {
		t.Fatalf("expected advance to question 2, at %d", i+1)
	}
	e.Answer(1)
	e.Answer(0)
	// The last question does not advance past the end.
	if i, _ := e.Current(); i != 2 || !e.OnLast() {
		t.Fatalf("expected to stay on last question, at %d", i+1)
	}
	if a, ok := e.Selected(2); !ok || a != 0 {
		t.Errorf("expected answer 0 recorded for question 3, got %d/%v", a, ok)
	}
}

func TestAnswerRejectsBadOption(t *testing.T) {
	e := New(nil)
	err := e.Answer(4)
	if !errors.Is(err, ErrOption) {
		t.Fatalf("expected ErrOption, got %v", err)
	}
	if i, _ := e.Current(); i != 0 {
		t.Error("bad option must not advance")
	}
}

func TestResultScoring(t *testing.T) {
	e := New(DefaultBank())
	e.Answer(2) // Paris
	e.Answer(0) // Venus
	e.Answer(1) // 4

	e.Finalize(violation.EndSubmitted)
	r := e.Result()
	if r.Total != 3 || r.Answered != 3 || r.Correct != 2 {
		t.Errorf("unexpected result: %+v", r)
	}
	if r.Score < 66.6 || r.Score > 66.7 {
		t.Errorf("expected score 66.7, got %v", r.Score)
	}
	if !r.Completed || r.Reason != violation.EndSubmitted {
		t.Errorf("expected submitted completion, got %+v", r)
	}
}

func TestFinalizeOnceFreezesAnswers(t *testing.T) {
	e := New(DefaultBank())
	e.Finalize(violation.EndViolationLimit)
	e.Finalize(violation.EndSubmitted)

	if r := e.Result(); r.Reason != violation.EndViolationLimit {
		t.Errorf("expected first reason kept, got %s", r.Reason)
	}
	if err := e.Answer(0); !errors.Is(err, ErrFinished) {
		t.Errorf("expected ErrFinished, got %v", err)
	}
	if r := e.Result(); r.Answered != 0 || r.Score != 0 {
		t.Errorf("expected no answers, got %+v", r)
	}
}

func TestExamIsAFinalizer(t *testing.T) {
	e := New(nil)
	c := violation.NewCounter(1, e)
	c.Report()
	if !e.Done() {
		t.Fatal("expected counter to finalize the exam")
	}
}

func TestGotoClamps(t *testing.T) {
	e := New(nil)
	e.Goto(10)
	if i, _ := e.Current(); i != 2 {
		t.Errorf("expected clamp to last, got %d", i)
	}
	e.Goto(-1)
	if i, _ := e.Current(); i != 0 {
		t.Errorf("expected clamp to first, got %d", i)
	}
}

func TestLoadBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	os.WriteFile(path, []byte(`
title: Go basics
questions:
  - id: 1
    question: Which keyword starts a goroutine?
    options: [go, async, spawn]
    correct_answer: 0
`), 0644)

	b, err := LoadBank(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Title != "Go basics" || len(b.Questions) != 1 {
		t.Errorf("unexpected bank: %+v", b)
	}
	if len(b.Rules) != len(DefaultRules) {
		t.Errorf("expected default rules filled in, got %d", len(b.Rules))
	}
}

func TestLoadBankEmptyPath(t *testing.T) {
	b, err := LoadBank("")
	if err != nil || len(b.Questions) != 3 {
		t.Fatalf("expected demo bank, got %v / %v", b, err)
	}
}

func TestLoadBankRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "title: x\n", "no questions"},
		{"options", "questions:\n  - question: q\n    options: [a]\n", "at least 2 options"},
		{"range", "questions:\n  - question: q\n    options: [a, b]\n    correct_answer: 2\n", "out of range"},
		{"text", "questions:\n  - options: [a, b]\n", "empty text"},
		{"yaml", "questions: {", "parse bank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bank.yaml")
			os.WriteFile(path, []byte(tt.body), 0644)
			_, err := LoadBank(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
