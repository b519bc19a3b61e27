package main

import (
	"os"

	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	_ "github.com/johnson2500/retail-shopping-assistant/pkg/logger/autoload"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
