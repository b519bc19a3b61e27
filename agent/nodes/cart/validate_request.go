package cartnode

import (
	"fmt"
	"time"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
)

// GraphState is threaded through the cart graph. State is a private copy of
// the caller's input.
type GraphState struct {
	Start time.Time
	State statex.State
	Call  contractx.ToolCall
}

func ValidateRequest(in statex.State, nowFn func() time.Time) (*GraphState, error) {
	start := nowFn()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	return &GraphState{
		Start: start,
		State: in.Clone(),
	}, nil
}
