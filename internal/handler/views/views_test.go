package views

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/pdfquiz/internal/i18n"
	"github.com/pavelanni/pdfquiz/internal/model"
	"github.com/pavelanni/pdfquiz/internal/session"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testSnapshot() session.Snapshot {
	s := session.New(model.QuestionSet{
		MCQ: []model.MCQQuestion{{
			Question:      "Is <script>alert(1)</script> safe?",
			Options:       []string{"A) Yes", "B) No", `C) "Maybe"`, "D) Never"},
			CorrectAnswer: "B",
			Source:        "a&b.pdf",
		}},
		ShortAnswer: []model.ShortAnswerQuestion{{Question: "Why?", Answer: "Because.", Source: "a&b.pdf"}},
	})
	_ = s.SetAnswer(0, "B) No")
	_ = s.SetAnswer(1, "</textarea><b>hi</b>")
	return s.Snapshot()
}

func TestTestPageEscapes(t *testing.T) {
	var buf bytes.Buffer
	snap := testSnapshot()
	require.NoError(t, TestPage(snap).Render(context.Background(), &buf))
	out := buf.String()

	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "Is &lt;script&gt;alert(1)&lt;/script&gt; safe?")
	assert.Contains(t, out, "a&amp;b.pdf")
	assert.Contains(t, out, `value="C) &#34;Maybe&#34;"`)
	assert.Contains(t, out, "&lt;/textarea&gt;&lt;b&gt;hi&lt;/b&gt;</textarea>")
	assert.Contains(t, out, `action="/test/`+snap.ID+`/submit"`)
}

func TestTestPageKeepsSelection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TestPage(testSnapshot()).Render(context.Background(), &buf))
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, " checked"))
	assert.Contains(t, out, `value="B) No" checked>`)
	assert.Equal(t, 4, strings.Count(out, `type="radio"`))
}

func TestResultsPage(t *testing.T) {
	answer := "<i>B</i>"
	res := &session.Results{
		TotalScore: 7,
		MaxScore:   10,
		Items: []session.ItemResult{{
			Item:   session.Item{Index: 0, Question: "Q?"},
			Answer: &answer,
			Result: model.EvaluationResult{Score: 7, Feedback: model.Feedback{
				Correct: "Good", Incorrect: "<none>", Suggestions: "Read more",
			}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, ResultsPage(res).Render(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "7/10")
	assert.Contains(t, out, "&lt;i&gt;B&lt;/i&gt;")
	assert.Contains(t, out, "&lt;none&gt;")
	assert.Contains(t, out, "Read more")
}
