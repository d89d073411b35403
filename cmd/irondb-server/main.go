package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"irondb/internal/config"
	"irondb/internal/logging"
	"irondb/internal/node"
)

func main() {
	configName := flag.String("config", config.DefaultName, "Configuration source (tried as <name>.yaml, <name>.yml, <name>)")
	listen := flag.String("listen", "", "Override dflt_server_hostport")
	flag.Parse()

	cfg, err := config.Load(*configName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
		if err := cfg.Validate(); err != nil {
			zlog.Fatal().Err(err).Msg("invalid -listen")
		}
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to set up logging")
	}

	n, err := node.NewNode(*cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create node")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		n.Stop()
		<-errCh
	case err := <-errCh:
		n.Stop()
		if err != nil {
			logger.Fatal().Err(err).Msg("node failed")
		}
	}
}
