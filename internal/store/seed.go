package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type SeedFile struct {
	Users      []SeedUser     `yaml:"users"`
	Categories []SeedCategory `yaml:"categories"`
}

type SeedUser struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
}

type SeedCategory struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Questions []SeedQuestion `yaml:"questions"`
}

type SeedQuestion struct {
	ID            string   `yaml:"id"`
	Text          string   `yaml:"text"`
	Type          string   `yaml:"type"`
	Options       []string `yaml:"options"`
	CorrectAnswer string   `yaml:"correctAnswer"`
}

// Seeder is the write side the question loader needs; both stores satisfy it.
type Seeder interface {
	UpsertUser(ctx context.Context, id, username string) error
	UpsertCategory(ctx context.Context, c engine.Category) error
	UpsertQuestion(ctx context.Context, q engine.Question) error
}

func LoadQuestionFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, err
	}
	return ParseQuestions(data)
}

func ParseQuestions(data []byte) (SeedFile, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SeedFile{}, fmt.Errorf("parse questions: %w", err)
	}
	if err := f.Validate(); err != nil {
		return SeedFile{}, err
	}
	return f, nil
}

// Validate reports every problem in the file, not just the first.
func (f SeedFile) Validate() error {
	var errs error
	users := map[string]bool{}
	for i, u := range f.Users {
		if u.ID == "" || u.Username == "" {
			errs = multierr.Append(errs, fmt.Errorf("users[%d]: id and username are required", i))
		}
		if users[u.ID] {
			errs = multierr.Append(errs, fmt.Errorf("users[%d]: duplicate id %q", i, u.ID))
		}
		users[u.ID] = true
	}

	questions := map[string]bool{}
	for i, c := range f.Categories {
		if c.ID == "" || c.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("categories[%d]: id and name are required", i))
		}
		for j, q := range c.Questions {
			at := fmt.Sprintf("categories[%d].questions[%d]", i, j)
			if q.ID == "" {
				errs = multierr.Append(errs, fmt.Errorf("%s: id is required", at))
			} else if questions[q.ID] {
				errs = multierr.Append(errs, fmt.Errorf("%s: duplicate id %q", at, q.ID))
			}
			questions[q.ID] = true
			if strings.TrimSpace(q.Text) == "" {
				errs = multierr.Append(errs, fmt.Errorf("%s: text is required", at))
			}
			kind, err := engine.ParseKind(q.Type)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", at, err))
				continue
			}
			switch kind {
			case engine.KindTrivia:
				if q.CorrectAnswer == "" {
					errs = multierr.Append(errs, fmt.Errorf("%s: trivia needs correctAnswer", at))
				}
			case engine.KindMultipleChoice:
				if len(q.Options) < 2 {
					errs = multierr.Append(errs, fmt.Errorf("%s: multiple_choice needs at least two options", at))
				}
			}
		}
	}
	return errs
}

// SeedQuestions upserts users, categories and questions by id. It returns the
// number of questions written.
func SeedQuestions(ctx context.Context, s Seeder, f SeedFile) (int, error) {
	for _, u := range f.Users {
		if err := s.UpsertUser(ctx, u.ID, u.Username); err != nil {
			return 0, fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	n := 0
	for _, c := range f.Categories {
		if err := s.UpsertCategory(ctx, engine.Category{ID: c.ID, Name: c.Name}); err != nil {
			return n, fmt.Errorf("category %s: %w", c.ID, err)
		}
		for _, q := range c.Questions {
			err := s.UpsertQuestion(ctx, engine.Question{
				ID:            q.ID,
				CategoryID:    c.ID,
				Text:          q.Text,
				Kind:          engine.Kind(q.Type),
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
			})
			if err != nil {
				return n, fmt.Errorf("question %s: %w", q.ID, err)
			}
			n++
		}
	}
	return n, nil
}
