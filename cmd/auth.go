package cmd

import (
	"drivemirror/internal/auth"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for Google Drive",
}

var authGDriveCmd = &cobra.Command{
	Use:   "gdrive",
	Short: "Authenticate with Google Drive",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ServiceAccountFile != "" {
			fmt.Printf("service account configured (%s), nothing to do\n", cfg.ServiceAccountFile)
			return nil
		}

		if err := auth.Authorize(cmd.Context(), cfg, os.Stdin, os.Stdout); err != nil {
			return err
		}

		fmt.Println("Authenticated with Google Drive")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authGDriveCmd)
	rootCmd.AddCommand(authCmd)
}
