package exam

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Question is one multiple-choice item.
type Question struct {
	ID      int      `yaml:"id"             json:"id"`
	Text    string   `yaml:"question"       json:"question"`
	Options []string `yaml:"options"        json:"options"`
	Correct int      `yaml:"correct_answer" json:"-"`
}

// Bank is the rules shown before the exam and the questions asked.
type Bank struct {
	Title     string     `yaml:"title"`
	Rules     []string   `yaml:"rules"`
	Questions []Question `yaml:"questions"`
}

// DefaultRules are shown when a bank lists none.
var DefaultRules = []string{
	"Do not switch tabs or windows during the exam",
	"Maintain full-screen mode throughout the exam",
	"Do not use any external resources",
	"Three warnings will result in automatic submission",
	"Complete all questions within the allocated time",
}

// DefaultBank returns the built-in demo exam.
func DefaultBank() *Bank {
	return &Bank{
		Title: "Demo assessment",
		Rules: append([]string(nil), DefaultRules...),
		Questions: []Question{
			{ID: 1, Text: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, Correct: 2},
			{ID: 2, Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, Correct: 1},
			{ID: 3, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, Correct: 1},
		},
	}
}

// LoadBank reads a question bank from YAML. Empty path returns the demo bank.
func LoadBank(path string) (*Bank, error) {
	if path == "" {
		return DefaultBank(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("exam: read bank: %w", err)
	}
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("exam: parse bank %s: %w", path, err)
	}
	if len(b.Rules) == 0 {
		b.Rules = append([]string(nil), DefaultRules...)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks that every question is answerable.
func (b *Bank) Validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("exam: bank has no questions")
	}
	for i, q := range b.Questions {
		if q.Text == "" {
			return fmt.Errorf("exam: question %d: empty text", i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("exam: question %d: need at least 2 options, got %d", i+1, len(q.Options))
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return fmt.Errorf("exam: question %d: correct_answer %d out of range", i+1, q.Correct)
		}
	}
	return nil
}
