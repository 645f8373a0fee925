package main

import (
	"github.com/selmo/Tagdstiller-sub001/internal/config"
	"github.com/selmo/Tagdstiller-sub001/internal/server"
	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	server.Init(cfg)
}
