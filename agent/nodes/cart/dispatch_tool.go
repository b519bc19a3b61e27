package cartnode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
)

const EmptyCartResponse = "Your cart is empty."

type mutation struct {
	verb   string
	suffix string
	apply  func(ctx context.Context, userID int64, item string, amount int) (string, error)
}

func DispatchTool(
	ctx context.Context,
	in *GraphState,
	resolver contractx.Resolver,
	store contractx.CartStore,
) (*GraphState, error) {
	switch in.Call.Name {
	case contractx.ToolAddToCart:
		return mutate(ctx, in, resolver, store, mutation{verb: "add", suffix: "to", apply: store.AddItem})
	case contractx.ToolRemoveFromCart:
		return mutate(ctx, in, resolver, store, mutation{verb: "remove", suffix: "from", apply: store.RemoveItem})
	case contractx.ToolViewCart:
		return viewCart(ctx, in, store), nil
	default:
		return nil, fmt.Errorf("%w: unsupported tool=%s", contractx.ErrSchemaViolation, in.Call.Name)
	}
}

func mutate(
	ctx context.Context,
	in *GraphState,
	resolver contractx.Resolver,
	store contractx.CartStore,
	m mutation,
) (*GraphState, error) {
	userID := in.State.UserID

	item, err := resolver.Resolve(ctx, in.Call.ItemName)
	if err != nil {
		if errors.Is(err, contractx.ErrNoCatalogMatch) {
			in.State = in.State.WithResponse(notFoundResponse(in.Call.ItemName))
			return in, nil
		}
		return nil, err
	}

	response, err := m.apply(ctx, userID, item.CatalogName, in.Call.Quantity)
	if err != nil {
		logx.FromContext(ctx).Warn().
			Err(err).
			Int64("user_id", userID).
			Str("item", item.CatalogName).
			Msgf("cart %s failed", m.verb)
		response = fmt.Sprintf("Failed to %s %d %s %s cart.", m.verb, in.Call.Quantity, item.CatalogName, m.suffix)
	}

	refreshed := store.GetCart(ctx, userID)
	in.State = in.State.WithResponse(response).WithCart(refreshed.Cart)
	return in, nil
}

func viewCart(ctx context.Context, in *GraphState, store contractx.CartStore) *GraphState {
	result := store.GetCart(ctx, in.State.UserID)
	if result.Status == contractx.CartEmptyOrUnavailable {
		logx.FromContext(ctx).Debug().Int64("user_id", in.State.UserID).Msg("cart empty or unavailable")
	}

	in.State = in.State.WithResponse(DescribeCart(result.Cart)).WithCart(result.Cart)
	return in
}

// DescribeCart renders the cart the way the agent reports it to the shopper.
func DescribeCart(c statex.Cart) string {
	if c.IsEmpty() {
		return EmptyCartResponse
	}
	lines := make([]string, 0, len(c.Contents))
	for _, li := range c.Contents {
		lines = append(lines, fmt.Sprintf("The user has (%d %s) in their cart", li.Amount, li.Item))
	}
	return strings.Join(lines, ". ")
}

func notFoundResponse(itemName string) string {
	return fmt.Sprintf("No such item (%s) could be found in the catalog.", itemName)
}
