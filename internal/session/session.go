// Package session holds a user's answers to the active question set and
// scores them on submission.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// Evaluator scores one answer. *evaluate.Evaluator implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, question, reference string, answer *string) model.EvaluationResult
}

// Loader reads the active question set. *store.QuestionFile implements it.
type Loader interface {
	Load() (model.QuestionSet, error)
}

// Item is one question as presented in a test.
type Item struct {
	Index     int
	Number    int // 1-based within its kind
	Kind      model.QuestionKind
	Question  string
	Options   []string
	Reference string // correct letter for MCQs, reference answer otherwise
	Source    string
}

// ItemResult is the evaluation of one answered item.
type ItemResult struct {
	Item
	Answer *string
	Result model.EvaluationResult
}

// Results is the outcome of a submitted test.
type Results struct {
	Items      []ItemResult
	TotalScore int
	MaxScore   int
}

// Session is one attempt at the question set. It is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	items   []Item
	answers []*string
	results *Results
}

// New creates a session with one unset answer per question, MCQs first.
func New(set model.QuestionSet) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	for i, q := range set.MCQ {
		s.items = append(s.items, Item{
			Index:     len(s.items),
			Number:    i + 1,
			Kind:      model.KindMCQ,
			Question:  q.Question,
			Options:   q.Options,
			Reference: q.CorrectAnswer,
			Source:    q.Source,
		})
	}
	for i, q := range set.ShortAnswer {
		s.items = append(s.items, Item{
			Index:     len(s.items),
			Number:    i + 1,
			Kind:      model.KindShortAnswer,
			Question:  q.Question,
			Reference: q.Answer,
			Source:    q.Source,
		})
	}
	s.answers = make([]*string, len(s.items))
	return s
}

// Items lists the questions in presentation order. Items never change
// after New.
func (s *Session) Items() []Item {
	return s.items
}

// Snapshot is a consistent copy of a session for rendering.
type Snapshot struct {
	ID      string
	Items   []Item
	Answers []*string
}

// Snapshot copies the session's answers under its lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make([]*string, len(s.answers))
	for i, a := range s.answers {
		if a != nil {
			v := *a
			answers[i] = &v
		}
	}
	return Snapshot{ID: s.ID, Items: s.items, Answers: answers}
}

// Answer returns the recorded answer for index, or nil.
func (s *Session) Answer(index int) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.answers) || s.answers[index] == nil {
		return nil
	}
	v := *s.answers[index]
	return &v
}

// SetAnswer records the answer to the question at index. An empty text
// clears it.
func (s *Session) SetAnswer(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setAnswer(index, text)
}

func (s *Session) setAnswer(index int, text string) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("question index %d out of range [0,%d)", index, len(s.items))
	}
	if strings.TrimSpace(text) == "" {
		s.answers[index] = nil
		return nil
	}
	s.answers[index] = &text
	return nil
}

// Apply records a batch of submissions.
func (s *Session) Apply(subs []model.AnswerSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(subs)
}

func (s *Session) apply(subs []model.AnswerSubmission) error {
	for _, sub := range subs {
		text := ""
		if sub.UserAnswer != nil {
			text = *sub.UserAnswer
		}
		if err := s.setAnswer(sub.QuestionIndex, text); err != nil {
			return err
		}
	}
	return nil
}

// Submit evaluates every question in order, one at a time, and returns the
// aggregate score. The maximum is 10 per question. The session stays locked
// until the last evaluation returns.
func (s *Session) Submit(ctx context.Context, ev Evaluator) *Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit(ctx, ev)
}

// SubmitAnswers applies subs and evaluates the session as one step.
func (s *Session) SubmitAnswers(ctx context.Context, subs []model.AnswerSubmission, ev Evaluator) (*Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(subs); err != nil {
		return nil, err
	}
	return s.submit(ctx, ev), nil
}

func (s *Session) submit(ctx context.Context, ev Evaluator) *Results {
	res := &Results{MaxScore: 10 * len(s.items)}
	for i, it := range s.items {
		r := ev.Evaluate(ctx, it.Question, it.Reference, s.answers[i])
		res.Items = append(res.Items, ItemResult{Item: it, Answer: s.answers[i], Result: r})
		res.TotalScore += r.Score
	}
	s.results = res
	return res
}

// Results returns the last submission's results, or nil.
func (s *Session) Results() *Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}
