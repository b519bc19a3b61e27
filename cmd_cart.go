package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	cartagent "github.com/johnson2500/retail-shopping-assistant/agent/agents/cart"
	"github.com/johnson2500/retail-shopping-assistant/agent/cartstore"
	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	"github.com/johnson2500/retail-shopping-assistant/agent/intent"
	"github.com/johnson2500/retail-shopping-assistant/agent/llm"
	"github.com/johnson2500/retail-shopping-assistant/agent/resolver"
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
	configx "github.com/johnson2500/retail-shopping-assistant/pkg/config"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	metricsx "github.com/johnson2500/retail-shopping-assistant/pkg/metrics"
	nimx "github.com/johnson2500/retail-shopping-assistant/pkg/nim"
	"github.com/spf13/cobra"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Run one cart agent turn and print the resulting state as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		query, _ := cmd.Flags().GetString("query")
		transcript, _ := cmd.Flags().GetString("context")

		invocationID := uuid.NewString()
		log := logx.Component("cart").With().Str("invocation_id", invocationID).Logger()
		ctx := log.WithContext(cmd.Context())

		checkModel, _ := cmd.Flags().GetBool("check-model")
		recorder := metricsx.New()
		agent, err := buildCartAgent(ctx, recorder, checkModel)
		if err != nil {
			return err
		}

		in := statex.New(userID, query)
		in.Context = transcript

		out, err := agent.Invoke(ctx, in)
		if err != nil {
			if errors.Is(err, contractx.ErrValidation) {
				return fmt.Errorf("invalid request: %w", err)
			}
			return err
		}

		counters, err := recorder.Counters()
		if err != nil {
			log.Warn().Err(err).Msg("gather metrics")
		}
		log.Info().
			Float64("total_time", out.TotalTime()).
			Interface("metrics", counters).
			Msg("cart turn complete")

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func buildCartAgent(ctx context.Context, recorder *metricsx.Recorder, checkModel bool) (*cartagent.Agent, error) {
	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, err
	}
	catalogCfg, err := configx.New[resolver.Config]("CATALOG")
	if err != nil {
		return nil, err
	}
	memoryCfg, err := configx.New[cartstore.Config]("MEMORY")
	if err != nil {
		return nil, err
	}
	agentCfg, err := configx.New[cartagent.Config]("AGENT")
	if err != nil {
		return nil, err
	}

	modelCfg := llmCfg.For(contractx.AgentTypeCart)
	if checkModel {
		client, err := nimx.NewClient(modelCfg)
		if err != nil {
			return nil, err
		}
		if err := nimx.CheckModel(ctx, client, modelCfg.Model); err != nil {
			return nil, err
		}
	}
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, err
	}
	classifier, err := intent.New(ctx, chatModel, contractx.AgentTypeCart)
	if err != nil {
		return nil, err
	}

	res, err := resolver.New(*catalogCfg, resolver.WithMetrics(recorder))
	if err != nil {
		return nil, err
	}

	memoryClient, err := cartstore.NewClient(*memoryCfg)
	if err != nil {
		return nil, err
	}

	return cartagent.New(classifier, res, memoryClient, *agentCfg, cartagent.WithMetrics(recorder))
}

func init() {
	rootCmd.AddCommand(cartCmd)
	cartCmd.Flags().Int64("user", 0, "Numeric user id")
	cartCmd.Flags().String("query", "", "Shopper request, e.g. \"add two apples\"")
	cartCmd.Flags().String("context", "", "Prior conversation transcript")
	cartCmd.Flags().Bool("check-model", false, "Verify the endpoint serves the configured model before running")
	_ = cartCmd.MarkFlagRequired("user")
	_ = cartCmd.MarkFlagRequired("query")
}
