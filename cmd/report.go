package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the full change report",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out string
		if err := call(http.MethodGet, "/report", nil, &out); err != nil {
			return err
		}

		fmt.Println(out)
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <url>",
	Short: "Show an object's parent chain and children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out string
		if err := call(http.MethodGet, "/inspect?url="+url.QueryEscape(args[0]), nil, &out); err != nil {
			return err
		}

		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd, inspectCmd)
}
