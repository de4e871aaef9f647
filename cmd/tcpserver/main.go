package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/api"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/config"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/core"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/factory"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

type startCmd struct {
	Port       int     `arg:"positional,required" help:"TCP port to listen on"`
	Response   *string `arg:"positional" help:"text sent on connect and after every message [default: Acknowledged]"`
	Verbose    *bool   `arg:"--verbose" help:"print every request and response to stdout [default: true]"`
	Sink       bool    `arg:"--sink" help:"only observe requests, never reply"`
	Charset    *string `arg:"--charset" help:"charset used on the wire [default: UTF-8]"`
	Config     string  `arg:"--config,env:CONFIG_FILE" help:"INI file with a [server] section"`
	HealthPort *string `arg:"--health-port" help:"port of the health HTTP server, empty disables it"`
}

type versionCmd struct{}

type args struct {
	Start   *startCmd   `arg:"subcommand:start" help:"start the server"`
	Version *versionCmd `arg:"subcommand:version" help:"print the version"`
}

func (args) Description() string {
	return "tcpserver answers every TCP message with a fixed response"
}

func main() {
	var a args
	p := arg.MustParse(&a)

	switch {
	case a.Version != nil:
		fmt.Println(version)
	case a.Start != nil:
		if err := run(a.Start); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		p.WriteHelp(os.Stdout)
		os.Exit(1)
	}
}

func run(cmd *startCmd) error {
	// Defaults, then INI, then environment, then flags
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger.Init(logger.Options{
		Level: logger.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogFormat == "json",
	})
	logger.Info("Starting tcpserver...",
		"version", version,
		"port", cfg.Port,
		"mode", cfg.HandlerMode,
		"runtime", cfg.Runtime,
		"response_mode", cfg.ResponseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start health server
	var healthServer *api.HealthServer
	if cfg.HealthServerPort != "" {
		healthServer = api.NewHealthServer(":" + cfg.HealthServerPort)
		healthServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Stop(shutdownCtx); err != nil {
				logger.Warn("Health server shutdown failed", "error", err)
			}
		}()
	}

	response, err := factory.NewResponseFactory(cfg).Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve response: %w", err)
	}

	server, err := factory.NewServerFactory(cfg).Create(response,
		factory.NewListener(cfg, os.Stdout),
		core.WithOnBound(func(net.Addr) {
			if healthServer != nil {
				healthServer.SetReady(true)
			}
			logger.Info("Server is ready to accept connections")
		}))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if healthServer != nil {
		healthServer.SetStats(server)
	}

	// Serve until SIGINT or SIGTERM
	if err := server.Serve(ctx); err != nil {
		var bindErr *core.BindError
		if errors.As(err, &bindErr) {
			logger.Error("Failed to bind", "addr", bindErr.Addr, "error", bindErr.Err)
		}
		return err
	}

	logger.Info("Server stopped", "accepted", server.Accepted())
	return nil
}

func applyFlags(cfg *config.Config, cmd *startCmd) {
	cfg.Port = cmd.Port
	if cmd.Response != nil {
		cfg.Response = *cmd.Response
		cfg.ResponseMode = config.ResponseStatic
	}
	if cmd.Verbose != nil {
		cfg.Verbose = *cmd.Verbose
	}
	if cmd.Sink {
		cfg.HandlerMode = config.HandlerSink
	}
	if cmd.Charset != nil {
		cfg.Charset = *cmd.Charset
	}
	if cmd.HealthPort != nil {
		cfg.HealthServerPort = *cmd.HealthPort
	}
}
