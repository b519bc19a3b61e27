package cartnode

import (
	"context"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
)

func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.IntentClassifier) (*GraphState, error) {
	call, err := classifier.Classify(ctx, contractx.IntentRequest{
		Query:   in.State.Query,
		Context: in.State.Context,
	})
	if err != nil {
		return nil, err
	}

	logx.FromContext(ctx).Info().
		Int64("user_id", in.State.UserID).
		Str("tool", string(call.Name)).
		Str("item_name", call.ItemName).
		Int("quantity", call.Quantity).
		Msg("cart tool selected")

	in.Call = call
	return in, nil
}
