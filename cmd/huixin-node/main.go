package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"huixinactor/actor"
	"huixinactor/config"
	"huixinactor/observability"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (optional, env HUIXIN_* overrides)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sys := actor.NewSystem()
	sys.SetLogger(logger)
	if cfg.Serializer == "cbor" {
		sys.SetSerializer(actor.CborSerializer{})
	}
	if cfg.Persistence.Enable {
		sys.EnablePersistence(cfg.Persistence.Dir)
	}
	if cfg.RateLimit.Enable {
		sys.EnableRateLimit(cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	}
	if cfg.Metrics.Enable {
		if err := sys.EnableMetrics(cfg.Metrics.Addr); err != nil {
			logger.Warn("metrics disabled", zap.Error(err))
		}
	}
	if cfg.Remote.Enable {
		if err := sys.EnableRemote(cfg.Remote.Listen); err != nil {
			logger.Error("remote listen failed", zap.Error(err))
			os.Exit(1)
		}
	}

	sup := actor.NewSupervisor(sys, actor.SupervisorOptions{})
	echo := sup.Spawn("echo", func(sys *actor.System) *actor.BaseActor {
		return actor.NewBaseActor(sys, actor.BaseActorOptions{
			Name: "echo",
			Receive: func(ctx *actor.Context, msg any) {
				ctx.Respond(msg, nil)
			},
		})
	})

	logger.Info("node started",
		zap.String("app", cfg.AppName),
		zap.String("node", cfg.NodeID),
		zap.String("instance", sys.InstanceID()),
		zap.String("echo", echo.ID()))

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	logger.Info("shutting down")
	echo.Stop()
}
