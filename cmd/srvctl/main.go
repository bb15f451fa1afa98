package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	srvctlv1 "srvctl/api/srvctl/v1"
	"srvctl/internal/app"
	"srvctl/internal/tui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "srvctl [command]",
	Short: "srvctl: game server supervisor",
	Long: `srvctl runs a console game server under a daemon, correlates console
commands with their output and manages state backups and rollbacks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("SRVCTL_CONFIG"), "Path to JSON config file")
}

// controllerAPI is the app surface the commands use.
type controllerAPI interface {
	tui.Controller
	Ping(ctx context.Context, timeout time.Duration) (string, error)
	RunCommand(ctx context.Context, command string, timeout time.Duration) (srvctlv1.CommandResult, error)
	StopDaemon(force bool) error
	StartDaemon(logger *log.Logger) (*app.DaemonHandle, error)
}

var controllerFactory = func() controllerAPI {
	return app.New(app.Options{ConfigPath: configPath})
}

func controller() controllerAPI {
	return controllerFactory()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
