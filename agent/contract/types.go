package contract

import (
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
)

type AgentType string

const (
	AgentTypeCart AgentType = "cart"
)

type ToolName string

const (
	ToolAddToCart      ToolName = "add_to_cart"
	ToolRemoveFromCart ToolName = "remove_from_cart"
	ToolViewCart       ToolName = "view_cart"
)

func (n ToolName) Valid() bool {
	switch n {
	case ToolAddToCart, ToolRemoveFromCart, ToolViewCart:
		return true
	default:
		return false
	}
}

type IntentRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// ToolCall is the validated selection made by the intent classifier.
// ItemName and Quantity are zero for view_cart.
type ToolCall struct {
	Name     ToolName `json:"name"`
	ItemName string   `json:"item_name,omitempty"`
	Quantity int      `json:"quantity,omitempty"`
}

type ResolvedItem struct {
	CatalogName string  `json:"catalog_name"`
	Similarity  float64 `json:"similarity"`
}

type CartStatus string

const (
	CartFetched CartStatus = "fetched"
	// CartEmptyOrUnavailable is reported when the store could not be read.
	// The cart in the result is empty.
	CartEmptyOrUnavailable CartStatus = "empty_or_unavailable"
)

type CartResult struct {
	Cart   statex.Cart `json:"cart"`
	Status CartStatus  `json:"status"`
}
