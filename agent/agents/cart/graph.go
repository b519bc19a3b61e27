package cart

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/johnson2500/retail-shopping-assistant/agent/nodes/cart"
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
)

func (a *Agent) compileInvokeGraph(
	ctx context.Context,
) (compose.Runnable[statex.State, statex.State], error) {
	graph := compose.NewGraph[statex.State, statex.State]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in statex.State) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, a.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, a.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_tool",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchTool(ctx, in, a.resolver, a.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_tool: %w", err)
	}

	if err := graph.AddLambdaNode("append_context",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AppendContext(ctx, in, a.store, a.persistContext)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node append_context: %w", err)
	}

	if err := graph.AddLambdaNode("record_timing",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (statex.State, error) {
			return nodex.RecordTiming(in, a.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node record_timing: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "classify_intent"},
		{"classify_intent", "dispatch_tool"},
		{"dispatch_tool", "append_context"},
		{"append_context", "record_timing"},
		{"record_timing", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("cart.invoke"))
	if err != nil {
		return nil, fmt.Errorf("compile cart graph: %w", err)
	}
	return runner, nil
}
