package cmd

import (
	"drivemirror/internal/model"
	"fmt"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Poller model.PollerSnapshot `json:"poller"`
			Tasks  int                  `json:"tasks"`
			Runs   []model.RunSnapshot  `json:"runs"`
		}

		if err := call(http.MethodGet, "/status", nil, &result); err != nil {
			return err
		}

		state := "stopped"
		if result.Poller.Running {
			state = "running"
		}

		lastPoll := "never"
		if result.Poller.LastPoll != nil {
			lastPoll = humanize.Time(*result.Poller.LastPoll)
		}

		fmt.Printf("monitor:   %s, every %s\n", state, result.Poller.Interval)
		fmt.Printf("tasks:     %d\n", result.Tasks)
		fmt.Printf("polls:     %d (last %s)\n", result.Poller.Polls, lastPoll)
		if result.Poller.LastError != "" {
			fmt.Printf("last error: %s\n", result.Poller.LastError)
		}

		if len(result.Runs) == 0 {
			return nil
		}

		fmt.Println()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Run", "Action", "Status", "Started", "Error"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, r := range result.Runs {
			table.Append([]string{r.ID, r.Action, string(r.Status), humanize.Time(r.StartedAt), r.Error})
		}

		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
