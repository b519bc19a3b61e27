package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
)

var (
	//go:embed template/cart.txt
	cartRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Cart string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Cart: strings.TrimSpace(cartRaw),
	}
}

// For returns the system prompt of agentType.
func (p PromptSet) For(agentType contractx.AgentType) (string, error) {
	var out string
	switch agentType {
	case contractx.AgentTypeCart:
		out = p.Cart
	}
	if out == "" {
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	return out, nil
}

// CartUserMessage renders the user turn sent with the cart tool schema.
func CartUserMessage(query, context string) string {
	return fmt.Sprintf("USER QUERY: %s\nCONTEXT: %s", query, context)
}
