package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
)

type cartItemArgs struct {
	ItemName *string `json:"item_name"`
	Quantity *int    `json:"quantity"`
}

// ForAgent returns the tool schema offered to the model for agentType.
func ForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeCart:
		return []*schema.ToolInfo{
			{
				Name:        string(contractx.ToolAddToCart),
				Desc:        "Add a product from the catalog to the user's cart.",
				ParamsOneOf: itemParams("The name of the product to add.", "How many units to add."),
			},
			{
				Name:        string(contractx.ToolRemoveFromCart),
				Desc:        "Remove a product from the user's cart.",
				ParamsOneOf: itemParams("The name of the product to remove.", "How many units to remove."),
			},
			{
				Name:        string(contractx.ToolViewCart),
				Desc:        "Report what is currently in the user's cart.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
		}
	default:
		return nil
	}
}

func itemParams(itemDesc, quantityDesc string) *schema.ParamsOneOf {
	return schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"item_name": {Type: schema.String, Desc: itemDesc, Required: true},
		"quantity":  {Type: schema.Integer, Desc: quantityDesc, Required: true},
	})
}

// DecodeCall validates a raw tool call from the model and maps it to a ToolCall.
func DecodeCall(name string, rawArgs string) (contractx.ToolCall, error) {
	toolName := contractx.ToolName(strings.TrimSpace(name))
	if toolName == "" {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
	}
	if !toolName.Valid() {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSchemaViolation, toolName, contractx.AgentTypeCart)
	}

	if toolName == contractx.ToolViewCart {
		return contractx.ToolCall{Name: toolName}, nil
	}

	var args cartItemArgs
	raw := strings.TrimSpace(rawArgs)
	if raw == "" {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool=%s requires arguments", contractx.ErrSchemaViolation, toolName)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&args); err != nil {
		return contractx.ToolCall{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, toolName, err)
	}

	if args.ItemName == nil || strings.TrimSpace(*args.ItemName) == "" {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool=%s requires item_name", contractx.ErrSchemaViolation, toolName)
	}
	if args.Quantity == nil {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool=%s requires quantity", contractx.ErrSchemaViolation, toolName)
	}
	if *args.Quantity <= 0 {
		return contractx.ToolCall{}, fmt.Errorf("%w: tool=%s quantity must be > 0, got %d", contractx.ErrSchemaViolation, toolName, *args.Quantity)
	}

	return contractx.ToolCall{
		Name:     toolName,
		ItemName: strings.TrimSpace(*args.ItemName),
		Quantity: *args.Quantity,
	}, nil
}
