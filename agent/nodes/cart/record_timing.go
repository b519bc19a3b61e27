package cartnode

import (
	"time"

	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
)

const TimingKey = "cart"

func RecordTiming(in *GraphState, nowFn func() time.Time) (statex.State, error) {
	elapsed := nowFn().Sub(in.Start).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return in.State.WithTiming(TimingKey, elapsed), nil
}
