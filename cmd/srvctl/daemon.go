package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdDaemon)
	rootCmd.AddCommand(cmdStop)
}

var (
	daemonForceRestart bool
	daemonDebug        bool
	stopForce          bool
)

func init() {
	cmdDaemon.Flags().BoolVarP(&daemonForceRestart, "force", "f", false, "Restart the daemon if it is already running")
	cmdDaemon.Flags().BoolVar(&daemonDebug, "debug", false, "Enable debug logging")
	cmdStop.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill the daemon if it does not stop in time")
}

var cmdDaemon = &cobra.Command{
	Use:   "daemon",
	Short: "Start the daemon and the supervised server",
	Long: `The daemon starts the configured server, records its console and serves
commands, backups and rollbacks over a local socket until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		out := cmd.OutOrStdout()

		st, err := ctrl.Status()
		if st.Running {
			if !daemonForceRestart {
				switch {
				case err != nil:
					fmt.Fprintf(out, "Error checking if daemon is running: %v\n", err)
				case st.PID != 0:
					fmt.Fprintf(out, "Daemon is already running (pid %d). Stop it manually or re-run with --force.\n", st.PID)
				default:
					fmt.Fprintln(out, "Daemon is already running. Stop it manually or re-run with --force.")
				}
				return nil
			}
			fmt.Fprintln(out, "Stopping existing daemon process...")
			if err := ctrl.StopDaemon(true); err != nil {
				return err
			}
		}

		logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "srvctl"})
		if daemonDebug || os.Getenv("SRVCTL_DEBUG") != "" {
			logger.SetLevel(log.DebugLevel)
		}
		handle, err := ctrl.StartDaemon(logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Started daemon process")
		runSpin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(out))
		runSpin.Suffix = " Running..."
		runSpin.Start()

		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		runSpin.Stop()

		fmt.Fprintln(out, "Stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), ctrl.OperationTimeout())
		defer cancel()
		return handle.Shutdown(ctx)
	},
}

var cmdStop = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon and its server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		st, err := ctrl.Status()
		if err != nil {
			return err
		}
		if !st.Running {
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
			return nil
		}
		if err := ctrl.StopDaemon(stopForce); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
		return nil
	},
}
