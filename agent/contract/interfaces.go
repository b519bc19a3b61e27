package contract

import "context"

// IntentClassifier selects exactly one cart tool for a user request.
type IntentClassifier interface {
	Classify(ctx context.Context, req IntentRequest) (ToolCall, error)
}

// Resolver maps a free-text item name to its canonical catalog name.
type Resolver interface {
	Resolve(ctx context.Context, itemName string) (ResolvedItem, error)
}

// CartStore is the part of the memory service the cart agent depends on.
type CartStore interface {
	GetCart(ctx context.Context, userID int64) CartResult
	AddItem(ctx context.Context, userID int64, item string, amount int) (string, error)
	RemoveItem(ctx context.Context, userID int64, item string, amount int) (string, error)
	AppendContext(ctx context.Context, userID int64, text string)
}
