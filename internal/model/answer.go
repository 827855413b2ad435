package model

import (
	"encoding/json"
	"math"
)

// NoAnswer is the wire sentinel for an unanswered position.
const NoAnswer = -1

// Answer is one entry of a candidate's answer list. The zero value is an
// unanswered position. On the wire an answer is a JSON number (option
// index), a string (essay text) or null; -1 also means unanswered.
type Answer struct {
	choice *int
	Text   string
}

// Choice returns an answer selecting option i. Negative indexes yield an
// unanswered position.
func Choice(i int) Answer {
	if i < 0 {
		return Answer{}
	}
	return Answer{choice: &i}
}

// Essay returns a free-text answer.
func Essay(text string) Answer {
	return Answer{Text: text}
}

// Option returns the chosen option index and whether one was chosen.
func (a Answer) Option() (int, bool) {
	if a.choice == nil {
		return NoAnswer, false
	}
	return *a.choice, true
}

// Blank reports whether the position carries neither a choice nor text.
func (a Answer) Blank() bool {
	return a.choice == nil && a.Text == ""
}

// Choices builds an answer list from option indexes; -1 marks a blank.
func Choices(idx ...int) []Answer {
	out := make([]Answer, len(idx))
	for i, v := range idx {
		out[i] = Choice(v)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case a.choice != nil:
		return json.Marshal(*a.choice)
	case a.Text != "":
		return json.Marshal(a.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Values that are neither a
// non-negative integral number nor a string decode as unanswered.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Answer{}
	switch t := v.(type) {
	case float64:
		if t >= 0 && t == math.Trunc(t) && t <= math.MaxInt32 {
			*a = Choice(int(t))
		}
	case string:
		a.Text = t
	}
	return nil
}
