package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"srvctl/internal/app"
)

func init() {
	rootCmd.AddCommand(cmdBackup, cmdBackups, cmdRollback)
}

var cmdBackup = &cobra.Command{
	Use:   "backup",
	Short: "Stop the server, copy its state and start it again",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		out := cmd.OutOrStdout()

		spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		spin.Suffix = " Backing up..."
		spin.Start()
		b, err := ctrl.Backup(cmd.Context(), ctrl.OperationTimeout())
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Backup %s created at %s\n", b.Name, b.Path)
		return nil
	},
}

var cmdBackups = &cobra.Command{
	Use:   "backups",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := controller().ListBackups(cmd.Context(), app.DefaultTimeout)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No backups")
			return nil
		}
		for _, b := range list {
			fmt.Fprintln(out, b.Name)
		}
		return nil
	},
}

var cmdRollback = &cobra.Command{
	Use:   "rollback <backup-name>",
	Short: "Replace the live state with a backup",
	Long: `Rollback stops the server, keeps the current state as a .old copy,
restores the named backup and starts the server again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		name := strings.Join(args, " ")

		spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		spin.Suffix = " Rolling back..."
		spin.Start()
		err := ctrl.Rollback(cmd.Context(), name, ctrl.OperationTimeout())
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rolled back to %s\n", name)
		return nil
	},
}
