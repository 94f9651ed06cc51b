package exam

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/examguard/internal/violation"
)

var (
	ErrFinished = errors.New("exam: already finished")
	ErrOption   = errors.New("exam: no such option")
)

// Result summarises a finished (or running) exam.
type Result struct {
	Total     int                 `json:"total"`
	Answered  int                 `json:"answered"`
	Correct   int                 `json:"correct"`
	Score     float64             `json:"score"`
	Completed bool                `json:"completed"`
	Reason    violation.EndReason `json:"end_reason,omitempty"`
}

// Exam tracks answers and the current question. It is the session's
// finalizer: the monitor ends it either on submission or on the violation limit.
type Exam struct {
	mu      sync.Mutex
	bank    *Bank
	current int
	answers map[int]int
	done    bool
	reason  violation.EndReason
}

// New starts an exam on the first question.
func New(bank *Bank) *Exam {
	if bank == nil {
		bank = DefaultBank()
	}
	return &Exam{bank: bank, answers: make(map[int]int)}
}

// Title returns the bank title.
func (e *Exam) Title() string { return e.bank.Title }

// Rules returns the rules to show before starting.
func (e *Exam) Rules() []string { return e.bank.Rules }

// Len returns the number of questions.
func (e *Exam) Len() int { return len(e.bank.Questions) }

// Current returns the current question index and the question.
func (e *Exam) Current() (int, Question) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.bank.Questions[e.current]
}

// Selected returns the recorded answer for question i, if any.
func (e *Exam) Selected(i int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.answers[i]
	return a, ok
}

// Answer records option for the current question and advances unless this
// is the last one. Changing an earlier answer is allowed until the exam ends.
func (e *Exam) Answer(option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrFinished
	}
	q := e.bank.Questions[e.current]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: %d (question has %d)", ErrOption, option+1, len(q.Options))
	}
	e.answers[e.current] = option
	if e.current < len(e.bank.Questions)-1 {
		e.current++
	}
	return nil
}

// Goto moves to question i, clamped to the bank.
func (e *Exam) Goto(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	switch {
	case i < 0:
		i = 0
	case i >= len(e.bank.Questions):
		i = len(e.bank.Questions) - 1
	}
	e.current = i
}

// OnLast reports whether the current question is the last.
func (e *Exam) OnLast() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current == len(e.bank.Questions)-1
}

// Finalize marks the exam completed. Only the first call takes effect.
func (e *Exam) Finalize(reason violation.EndReason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	e.reason = reason
}

// Done reports whether the exam has been finalized.
func (e *Exam) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Result scores the recorded answers.
func (e *Exam) Result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := Result{
		Total:     len(e.bank.Questions),
		Answered:  len(e.answers),
		Completed: e.done,
		Reason:    e.reason,
	}
	for i, a := range e.answers {
		if e.bank.Questions[i].Correct == a {
			r.Correct++
		}
	}
	if r.Total > 0 {
		r.Score = float64(r.Correct) * 100 / float64(r.Total)
	}
	return r
}
