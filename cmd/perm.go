package cmd

import (
	"drivemirror/internal/model"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var permCmd = &cobra.Command{
	Use:   "perm <url> <email> <reader|writer|owner>",
	Short: "Grant a user access to a file or folder",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := model.ParseRole(args[2]); err != nil {
			return fmt.Errorf("%w %q, expected reader, writer or owner", err, args[2])
		}

		var result map[string]string
		body := map[string]string{"url": args[0], "email": args[1], "role": args[2]}
		if err := call(http.MethodPost, "/permissions", body, &result); err != nil {
			return err
		}

		fmt.Printf("Permissions set successfully. Permission ID: %s\n", result["permission_id"])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(permCmd)
}
