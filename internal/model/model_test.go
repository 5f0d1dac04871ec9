package model

import (
	"reflect"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"Simple", DifficultySimple, false},
		{"medium", DifficultyMedium, false},
		{" HARD ", DifficultyHard, false},
		{"easy", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuestionSetSourcesAndLen(t *testing.T) {
	qs := QuestionSet{
		MCQ: []MCQQuestion{
			{Question: "q1", Source: "b.pdf"},
			{Question: "q2", Source: "a.pdf"},
		},
		ShortAnswer: []ShortAnswerQuestion{
			{Question: "q3", Source: "b.pdf"},
			{Question: "q4", Source: "c.pdf"},
		},
	}
	if qs.Len() != 4 {
		t.Errorf("Len() = %d, want 4", qs.Len())
	}
	want := []string{"b.pdf", "a.pdf", "c.pdf"}
	if got := qs.Sources(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sources() = %v, want %v", got, want)
	}
}
