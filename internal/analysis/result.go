package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QuizQuestion is one multiple-choice question. Answer holds the text of the
// correct option.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// UnmarshalJSON accepts an answer given as option text or as a zero-based
// index into Options, which some models return despite the instructions.
func (q *QuizQuestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question string          `json:"question"`
		Options  []string        `json:"options"`
		Answer   json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Question = raw.Question
	q.Options = raw.Options
	q.Answer = ""

	if len(raw.Answer) == 0 || string(raw.Answer) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Answer, &s); err == nil {
		q.Answer = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.Answer, &n); err != nil {
		return fmt.Errorf("quiz answer must be a string or number: %s", raw.Answer)
	}
	if i, err := strconv.Atoi(n.String()); err == nil && i >= 0 && i < len(q.Options) {
		q.Answer = q.Options[i]
		return nil
	}
	q.Answer = n.String()
	return nil
}

// ChunkResult is the analysis of a single chunk.
type ChunkResult struct {
	Summary   string         `json:"summary"`
	KeyPoints []string       `json:"key_points"`
	Quiz      []QuizQuestion `json:"quiz"`
}

// Merged is the document-level analysis built from every successful chunk.
type Merged struct {
	Summary   string         `json:"summary"`
	KeyPoints []string       `json:"key_points"`
	Quiz      []QuizQuestion `json:"quiz"`
}
