package cmd

import (
	"drivemirror/internal/model"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage monitor tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all monitor tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		var tasks []model.TaskSnapshot
		if err := call(http.MethodGet, "/tasks", nil, &tasks); err != nil {
			return err
		}

		if len(tasks) == 0 {
			fmt.Println("no monitor tasks")
			return nil
		}

		writeTaskTable(os.Stdout, tasks)
		return nil
	},
}

func writeTaskTable(w io.Writer, tasks []model.TaskSnapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Source Folder", "Destination Folder", "Objects Copied", "Updated"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, t := range tasks {
		updated := "-"
		if !t.UpdatedAt.IsZero() {
			updated = humanize.Time(t.UpdatedAt)
		}

		table.Append([]string{t.Source, t.Destination, strconv.Itoa(t.CopiedCount), updated})
	}

	table.Render()
}

var taskAddCmd = &cobra.Command{
	Use:   "add <source-url> [destination-url]",
	Short: "Copy a folder tree and register it for monitoring",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := pairArgs(args)

		var result map[string]string
		if err := call(http.MethodPost, "/tasks", map[string]string{"src": src, "dst": dst}, &result); err != nil {
			return err
		}

		fmt.Printf("initial copy started (run %s)\n", result["run_id"])
		return nil
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <source-url> [destination-url]",
	Short: "Stop monitoring a folder pair, keeping the copies",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := pairArgs(args)

		q := url.Values{"src": {src}, "dst": {dst}}
		if err := call(http.MethodDelete, "/tasks?"+q.Encode(), nil, nil); err != nil {
			return err
		}

		fmt.Println("monitor task removed")
		return nil
	},
}

func init() {
	taskCmd.AddCommand(taskListCmd, taskAddCmd, taskRemoveCmd)
	rootCmd.AddCommand(taskCmd)
}
