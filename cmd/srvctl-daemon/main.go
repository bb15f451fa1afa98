package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"srvctl/internal/app"
)

func main() {
	configPath := flag.String("config", os.Getenv("SRVCTL_CONFIG"), "Path to JSON config file")
	force := flag.Bool("force", false, "Stop an existing daemon before starting")
	debug := flag.Bool("debug", os.Getenv("SRVCTL_DEBUG") != "", "Enable debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "srvctl"})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	controller := app.New(app.Options{ConfigPath: *configPath})
	st, err := controller.Status()
	if st.Running {
		if !*force {
			if err != nil {
				logger.Fatal("daemon appears running but pid check failed", "err", err)
			}
			logger.Info("daemon is already running, use --force to restart", "pid", st.PID)
			return
		}
		logger.Info("stopping existing daemon")
		if err := controller.StopDaemon(true); err != nil {
			logger.Fatal("failed to stop running daemon", "err", err)
		}
	}

	handle, err := controller.StartDaemon(logger)
	if err != nil {
		logger.Fatal("failed to start daemon", "err", err)
	}
	logger.Info("daemon started, press Ctrl+C to stop", "pid", os.Getpid())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info("stopping daemon")

	ctx, cancel := context.WithTimeout(context.Background(), controller.OperationTimeout())
	defer cancel()
	if err := handle.Shutdown(ctx); err != nil {
		logger.Fatal("error shutting down daemon", "err", err)
	}
	logger.Info("daemon stopped")
}
