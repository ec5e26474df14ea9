package cmd

import (
	"drivemirror/internal/autostart"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the daemon to start at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		as, err := autostart.New()
		if err != nil {
			return err
		}

		if err := as.Install(execPath); err != nil {
			return err
		}

		fmt.Println("drivemirror daemon registered for autostart")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the daemon from autostart",
	RunE: func(cmd *cobra.Command, args []string) error {
		as, err := autostart.New()
		if err != nil {
			return err
		}

		installed, err := as.IsInstalled()
		if err != nil {
			return err
		}
		if !installed {
			fmt.Println("drivemirror daemon is not registered")
			return nil
		}

		if err := as.Uninstall(); err != nil {
			return err
		}

		fmt.Println("drivemirror daemon autostart removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd, uninstallCmd)
}
