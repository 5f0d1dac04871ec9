package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// ErrNoQuestions is returned when no question set has been generated yet.
var ErrNoQuestions = errors.New("no questions generated yet")

// QuestionFile persists the single active QuestionSet as a JSON document.
// Saving replaces the previous set wholesale.
type QuestionFile struct {
	path string
}

// NewQuestionFile returns a QuestionFile backed by path.
func NewQuestionFile(path string) *QuestionFile {
	return &QuestionFile{path: path}
}

// Path returns the file location.
func (f *QuestionFile) Path() string {
	return f.path
}

// Save writes the set to a temporary file and renames it over the target.
func (f *QuestionFile) Save(set model.QuestionSet) error {
	if set.MCQ == nil {
		set.MCQ = []model.MCQQuestion{}
	}
	if set.ShortAnswer == nil {
		set.ShortAnswer = []model.ShortAnswerQuestion{}
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal question set: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".questions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// Load reads the stored set. It returns ErrNoQuestions when the file does not exist.
func (f *QuestionFile) Load() (model.QuestionSet, error) {
	var set model.QuestionSet
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, ErrNoQuestions
	}
	if err != nil {
		return set, fmt.Errorf("read %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return set, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return set, nil
}
