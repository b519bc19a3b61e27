package cartnode

import (
	"context"
	"fmt"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
)

// AppendContext extends the transcript and, when persist is set, mirrors the
// exchange to the memory service. The remote write never affects the result.
func AppendContext(ctx context.Context, in *GraphState, store contractx.CartStore, persist bool) (*GraphState, error) {
	response := in.State.Response
	in.State = in.State.WithContextAppended("\nAgent Response: " + response)

	if persist {
		store.AppendContext(ctx, in.State.UserID, fmt.Sprintf("USER QUERY:%s\nRESPONSE:%s", in.State.Query, response))
	}
	return in, nil
}
