package models

import (
	"bytes"
	"encoding/json"
)

type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerText            // free text or a single selected option
	AnswerSelections
)

// AnswerValue is the tagged union behind the wire shape `string | []string`.
// Single-choice and free-text question types carry text; checkbox questions
// carry selections. Grading treats a mismatched kind as incorrect, never as
// an error.
type AnswerValue struct {
	Kind       AnswerKind
	Text       string
	Selections []string
}

func TextAnswer(text string) AnswerValue {
	return AnswerValue{Kind: AnswerText, Text: text}
}

func SelectionsAnswer(selections []string) AnswerValue {
	return AnswerValue{Kind: AnswerSelections, Selections: selections}
}

func (v AnswerValue) IsZero() bool {
	return v.Kind == AnswerNone
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerSelections:
		if v.Selections == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.Selections)
	case AnswerText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*v = AnswerValue{}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*v = AnswerValue{Kind: AnswerText, Text: text}
		return nil
	}

	var selections []string
	if err := json.Unmarshal(data, &selections); err == nil {
		*v = AnswerValue{Kind: AnswerSelections, Selections: selections}
		return nil
	}

	// Any other shape (null, number, object) grades as incorrect downstream.
	*v = AnswerValue{}
	return nil
}
