package state

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidUser  = errors.New("user id must be positive")
	ErrEmptyQuery   = errors.New("query is empty")
	ErrNegativeTime = errors.New("timing must be non-negative")
)

// State is the unit of work passed between agents for one request.
//
// State is a value: every With* helper returns a copy with freshly allocated
// maps, so two states derived from the same input never alias each other.
type State struct {
	UserID     int64              `json:"user_id"`
	Query      string             `json:"query"`
	Context    string             `json:"context"`
	Cart       Cart               `json:"cart"`
	Response   string             `json:"response"`
	Image      string             `json:"image,omitempty"`
	Retrieved  map[string]string  `json:"retrieved"`
	NextAgent  string             `json:"next_agent"`
	Guardrails bool               `json:"guardrails"`
	Timings    map[string]float64 `json:"timings"`
}

// New returns a State with the defaults used across the pipeline.
func New(userID int64, query string) State {
	return State{
		UserID:     userID,
		Query:      query,
		Cart:       Cart{Contents: []LineItem{}},
		Retrieved:  map[string]string{},
		Guardrails: true,
		Timings:    map[string]float64{},
	}
}

func (s State) Validate() error {
	if s.UserID <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidUser, s.UserID)
	}
	if s.IsEmptyQuery() {
		return ErrEmptyQuery
	}
	for step, d := range s.Timings {
		if d < 0 {
			return fmt.Errorf("%w: step=%s", ErrNegativeTime, step)
		}
	}
	return nil
}

func (s State) Clone() State {
	out := s
	out.Cart = s.Cart.Clone()
	out.Retrieved = cloneMap(s.Retrieved)
	if out.Retrieved == nil {
		out.Retrieved = map[string]string{}
	}
	out.Timings = cloneMap(s.Timings)
	if out.Timings == nil {
		out.Timings = map[string]float64{}
	}
	return out
}

func (s State) WithResponse(response string) State {
	out := s.Clone()
	out.Response = response
	return out
}

func (s State) WithCart(c Cart) State {
	out := s.Clone()
	out.Cart = c.Clone()
	return out
}

// WithContextAppended appends text to the transcript. Context is never rewritten.
func (s State) WithContextAppended(text string) State {
	out := s.Clone()
	out.Context = s.Context + text
	return out
}

func (s State) WithTiming(step string, seconds float64) State {
	return s.MergeTimings(map[string]float64{step: seconds})
}

// MergeTimings unions the given timings into the state. Keys contributed by
// other steps are kept; a key present in both takes the value from timings.
func (s State) MergeTimings(timings map[string]float64) State {
	out := s.Clone()
	for step, d := range timings {
		out.Timings[step] = d
	}
	return out
}

func (s State) TotalTime() float64 {
	total := 0.0
	for _, d := range s.Timings {
		total += d
	}
	return total
}

func (s State) HasImage() bool {
	return strings.TrimSpace(s.Image) != ""
}

func (s State) IsEmptyQuery() bool {
	return strings.TrimSpace(s.Query) == ""
}
