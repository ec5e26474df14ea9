package cmd

import (
	"drivemirror/internal/model"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var logN int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent daemon messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		var msgs []model.Message
		if err := call(http.MethodGet, fmt.Sprintf("/messages?n=%d", logN), nil, &msgs); err != nil {
			return err
		}

		if len(msgs) == 0 {
			fmt.Println("no messages yet")
			return nil
		}

		for _, m := range msgs {
			fmt.Printf("[%s] %-11s %s\n", m.Time.Local().Format("2006-01-02 15:04:05"), m.Origin, m.Text)
		}

		return nil
	},
}

func init() {
	logCmd.Flags().IntVar(&logN, "n", 20, "number of messages to show")
	rootCmd.AddCommand(logCmd)
}
