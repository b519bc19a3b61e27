package intent

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	promptx "github.com/johnson2500/retail-shopping-assistant/agent/prompt"
	toolx "github.com/johnson2500/retail-shopping-assistant/agent/tool"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
)

var _ contractx.IntentClassifier = (*Classifier)(nil)

// Classifier asks a tool-calling chat model which cart operation a request
// maps to.
type Classifier struct {
	agentType contractx.AgentType
	runner    compose.Runnable[map[string]any, *schema.Message]
}

func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, agentType contractx.AgentType) (*Classifier, error) {
	if chatModel == nil {
		return nil, errors.New("intent: chat model is nil")
	}

	systemPrompt, err := promptx.LoadPromptSet().For(agentType)
	if err != nil {
		return nil, err
	}

	tools := toolx.ForAgent(agentType)
	if len(tools) == 0 {
		return nil, fmt.Errorf("%w: no tools registered for agent=%s", contractx.ErrValidation, agentType)
	}
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}

	runner, err := compileToolSelectionGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile intent graph: %v", contractx.ErrModelInvoke, err)
	}

	return &Classifier{agentType: agentType, runner: runner}, nil
}

func compileToolSelectionGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add intent prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add intent model node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", compose.END},
	}
	for _, e := range edges {
		if err := graph.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add intent edge %s->%s: %w", e[0], e[1], err)
		}
	}

	return graph.Compile(ctx, compose.WithGraphName("intent.tool_selection"))
}

func (c *Classifier) Classify(ctx context.Context, req contractx.IntentRequest) (contractx.ToolCall, error) {
	msg, err := c.runner.Invoke(ctx, map[string]any{
		"input": promptx.CartUserMessage(req.Query, req.Context),
	})
	if err != nil {
		return contractx.ToolCall{}, fmt.Errorf("%w: chat completion for agent=%s: %v", contractx.ErrModelInvoke, c.agentType, err)
	}
	if msg == nil {
		return contractx.ToolCall{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}

	calls := msg.ToolCalls
	if len(calls) == 0 {
		return contractx.ToolCall{}, fmt.Errorf("%w: model selected no tool", contractx.ErrSchemaViolation)
	}
	if len(calls) > 1 {
		logx.FromContext(ctx).Warn().
			Int("tool_calls", len(calls)).
			Str("tool", calls[0].Function.Name).
			Msg("model returned several tool calls, using the first")
	}

	call, err := toolx.DecodeCall(calls[0].Function.Name, calls[0].Function.Arguments)
	if err != nil {
		return contractx.ToolCall{}, err
	}

	logx.FromContext(ctx).Debug().
		Str("tool", string(call.Name)).
		Str("item_name", call.ItemName).
		Int("quantity", call.Quantity).
		Msg("intent classified")
	return call, nil
}
