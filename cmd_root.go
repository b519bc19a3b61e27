package main

import (
	"fmt"

	configx "github.com/johnson2500/retail-shopping-assistant/pkg/config"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "shopping-assistant",
	Short:         "Retail shopping assistant: cart agent and memory service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env")
		configx.SetEnvFile(envFile)

		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return fmt.Errorf("load log config: %w", err)
		}
		logx.Init(*logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Path to a .env file (defaults to ./.env when present)")
}
