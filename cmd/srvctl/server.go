package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"srvctl/internal/app"
)

func init() {
	rootCmd.AddCommand(cmdStatus, cmdExec, cmdRun, cmdRestart, cmdLogs)

	cmdRestart.Flags().BoolVarP(&restartForce, "force", "f", false, "Stop a running server before starting it again")
	cmdLogs.Flags().StringSliceVarP(&logKinds, "kind", "k", nil, "Only show these kinds (stdin, stdout, stderr, userIn, userOut, userError)")
	cmdRun.Flags().DurationVarP(&runTimeout, "timeout", "t", time.Minute, "How long to wait for the command to resolve")
}

var (
	restartForce bool
	logKinds     []string
	runTimeout   time.Duration
)

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon and server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		out := cmd.OutOrStdout()

		d, err := ctrl.Status()
		if err != nil {
			return err
		}
		if !d.Running {
			fmt.Fprintln(out, "daemon: not running")
			return nil
		}
		fmt.Fprintf(out, "daemon: running (pid %d)\n", d.PID)

		st, err := ctrl.ServerStatus(cmd.Context(), app.DefaultTimeout)
		if err != nil {
			return err
		}
		if st.Running {
			fmt.Fprintf(out, "server: %s (pid %d, since %s)\n", st.State, st.PID, st.StartedAt.Local().Format(time.DateTime))
			if st.Command != "" {
				fmt.Fprintf(out, "command: %s\n", st.Command)
			}
		} else {
			fmt.Fprintf(out, "server: %s\n", st.State)
		}
		if st.LastExit != nil {
			fmt.Fprintf(out, "last exit: code %d (pid %d, requested %t) at %s\n",
				st.LastExit.Code, st.LastExit.PID, st.LastExit.Requested, st.LastExit.At.Local().Format(time.DateTime))
		}
		switch {
		case st.InFlight != "":
			fmt.Fprintf(out, "in flight: %s\n", st.InFlight)
		case st.Busy:
			fmt.Fprintln(out, "busy: yes")
		}
		return nil
	},
}

var cmdExec = &cobra.Command{
	Use:   "exec <input>",
	Short: "Send console input; commands may be separated by ';' or newlines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		input := strings.Join(args, " ")
		cmds, err := ctrl.Exec(cmd.Context(), input, ctrl.OperationTimeout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Success: %d command(s)\n", len(cmds))
		return nil
	},
}

var cmdRun = &cobra.Command{
	Use:   "run <command>",
	Short: "Run one console command and print the output it produced",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runTimeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		res, err := controller().RunCommand(cmd.Context(), strings.Join(args, " "), runTimeout)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), res.Output)
		return nil
	},
}

var cmdRestart = &cobra.Command{
	Use:   "restart",
	Short: "Start the server if it stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		if err := ctrl.Restart(cmd.Context(), restartForce, ctrl.OperationTimeout()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Server restarted")
		return nil
	},
}

var cmdLogs = &cobra.Command{
	Use:   "logs",
	Short: "Print the recorded console history",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := controller().Logs(cmd.Context(), logKinds, app.DefaultTimeout)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s %-9s %s\n", e.Time.Local().Format(time.TimeOnly), e.Kind, strings.TrimRight(e.Data, "\r\n"))
		}
		return nil
	},
}
