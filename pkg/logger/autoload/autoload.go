// Package autoload initialises the global logger from LOG_* variables on import.
package autoload

import (
	configx "github.com/johnson2500/retail-shopping-assistant/pkg/config"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		logx.Warn().Err(err).Msg("invalid LOG_* configuration, using defaults")
		return
	}
	logx.Init(*cfg)
}
