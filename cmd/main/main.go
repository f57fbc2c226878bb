package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-sync/src/config"
	"trade-sync/src/console"
	"trade-sync/src/logger"
	"trade-sync/src/session"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	showTicks := flag.Bool("ticks", false, "print every price change")
	interactive := flag.Bool("repl", true, "read commands from stdin")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	// 4. Setup Components
	renderer := console.NewRenderer(os.Stdout)
	renderer.SetShowTicks(*showTicks)

	client, err := session.New(conf.MConfig, appLogger, session.Options{})
	if err != nil {
		appLogger.Critical("Failed to set up client: %v", err)
		os.Exit(1)
	}
	client.AddSink(renderer)

	// 5. Start Servers
	servers := startServers(client, conf.MConfig, appLogger)

	// 6. Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := client.Start(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error("Client failed to start: %v", err)
			stop()
		}
	}()

	// 7. Run Command Loop (Blocking)
	if *interactive {
		console.NewREPL(client, renderer, os.Stdout).Run(ctx, os.Stdin)
		stop()
	}
	<-ctx.Done()

	appLogger.Info("Shutting down...")
	for _, srv := range servers {
		if err := srv.Stop(); err != nil {
			appLogger.Warning("Server stop: %v", err)
		}
	}
	if err := client.Stop(); err != nil {
		appLogger.Warning("Client stop: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
